package vertec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertec-tools/timesheets/vertec"
)

const usersResponse = `<Envelope>
<Body>
	<QueryResponse>
		<Projektbearbeiter>
			<objid>1001</objid>
			<name> Alice Example </name>
			<aktiv>1</aktiv>
			<teamleiter>
				<objref>900</objref>
			</teamleiter>
			<austrittper></austrittper>
			<teamleiter_name>Bob Boss</teamleiter_name>
			<planWertExt><objref>5</objref><accessdenied/></planWertExt>
		</Projektbearbeiter>
		<Projektbearbeiter>
			<objid>1002</objid>
			<name>Carol Example</name>
			<aktiv>0</aktiv>
		</Projektbearbeiter>
		<ProjektPhase>
			<objid>2699811</objid>
			<aktiv><accessdenied/></aktiv>
			<projekt>
				<objref>2671828</objref>
			</projekt>
		</ProjektPhase>
	</QueryResponse>
</Body>
</Envelope>`

const faultResponse = `<Envelope>
<Body>
	<Fault>
		<faultcode>Client</faultcode>
		<faultstring>Error(s) in XML input</faultstring>
		<details>
			<detailitem>Error: 84:Parenthesis are not in balance on line 10 col 22</detailitem>
			<detailitem>Error: expression Element without ocl on line 20 col 25</detailitem>
		</details>
	</Fault>
</Body>
</Envelope>`

func TestDecodeResponseFlattening(t *testing.T) {
	result, err := vertec.DecodeResponse(strings.NewReader(usersResponse), "q")
	require.NoError(t, err)
	require.False(t, result.Faulted())

	// the access-denied ProjektPhase record must have been dropped
	require.Len(t, result.Records, 2)

	alice := result.Records[0]
	assert.Equal(t, "Projektbearbeiter", alice.Datatype)
	assert.Equal(t, "1001", alice.Get("objid"))
	assert.Equal(t, "Alice Example", alice.Get("name"), "leaf text is trimmed")
	assert.Equal(t, "900", alice.Get("teamleiter"), "nested reference collapses to its text")
	assert.Equal(t, "", alice.Get("austrittper"), "empty leaf yields empty value")
	assert.Equal(t, "Bob Boss", alice.Get("teamleiter_name"))
	assert.Equal(t, vertec.AccessDenied, alice.Get("planWertExt"),
		"access-denied marker wins regardless of sibling content")

	carol := result.Records[1]
	assert.Equal(t, "0", carol.Get("aktiv"), "inactive is not the same as access-denied")
}

func TestDecodeResponseFault(t *testing.T) {
	result, err := vertec.DecodeResponse(strings.NewReader(faultResponse), "the-query")
	require.NoError(t, err)
	require.True(t, result.Faulted())

	assert.Empty(t, result.Records, "a faulted query emits no partial records")
	assert.Equal(t, "Client", result.Fault.Code)
	assert.Equal(t, "Error(s) in XML input", result.Fault.Message)
	require.Len(t, result.Fault.Details, 2)
	assert.Contains(t, result.Fault.Details[0], "Parenthesis are not in balance")
	assert.Equal(t, "the-query", result.Fault.Query)
	assert.ErrorContains(t, result.Fault, "Error(s) in XML input")
}

func TestDecodeResponseEmptyBody(t *testing.T) {
	result, err := vertec.DecodeResponse(strings.NewReader(`<Envelope><Body></Body></Envelope>`), "q")
	require.NoError(t, err)
	assert.False(t, result.Faulted())
	assert.Empty(t, result.Records)
}

func TestDecodeResponseMalformed(t *testing.T) {
	_, err := vertec.DecodeResponse(strings.NewReader(`this is not xml`), "q")
	assert.Error(t, err)
}

func TestRecordGetCaseInsensitive(t *testing.T) {
	record := vertec.Record{Fields: map[string]string{"minutenInt": "90"}}
	assert.Equal(t, "90", record.Get("minutenInt"))
	assert.Equal(t, "90", record.Get("minutenint"))
	assert.Equal(t, "", record.Get("missing"))
}
