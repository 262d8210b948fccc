package vertec

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"
)

// ExecutionError reports a query that failed at the HTTP/transport level:
// connection error, timeout or non-2xx status. It is never retried. A Fault
// is not an ExecutionError; the service answered, it just said no.
type ExecutionError struct {
	StatusCode int
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("query failed: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

const envelopeTemplate = `<Envelope><Header><BasicAuth><Token>%s</Token></BasicAuth></Header><Body>%s</Body></Envelope>`

// Query wraps queryXML in the auth envelope, POSTs it to {endpoint}/xml as
// plain text and decodes the response into records or a fault.
func (c *Client) Query(ctx context.Context, token, queryXML string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	envelope := fmt.Sprintf(envelopeTemplate, token, queryXML)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/xml", strings.NewReader(envelope))
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	req.Header.Set("Content-Type", "text/plain")

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		dump, _ := httputil.DumpRequestOut(req, false)
		slog.Debug("query request\n" + string(dump) + envelope)
	}
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		dump, _ := httputil.DumpResponse(resp, false)
		slog.Debug(fmt.Sprintf("query response (%s)\n%s%s", time.Since(start), dump, body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExecutionError{StatusCode: resp.StatusCode}
	}

	return DecodeResponse(bytes.NewReader(body), queryXML)
}

// ManagedUsersQuery selects the users whose team leader is the currently
// authenticated login, ordered by name.
func ManagedUsersQuery() string {
	return `<Query>
    <Selection>
        <ocl>projektbearbeiter->select(teamleiter.asstring=Timsession.allInstances->first.login.name)</ocl>
        <sqlorder>name</sqlorder>
    </Selection>
    <Resultdef>
        <member>name</member>
        <member>teamleiter</member>
        <member>eintrittper</member>
        <member>austrittper</member>
        <member>aktiv</member>
        <expression><alias>teamleiter_name</alias><ocl>teamleiter.name</ocl></expression>
        <expression><alias>stufe_name</alias><ocl>stufe</ocl></expression>
    </Resultdef>
</Query>`
}

// BookingsQuery selects all open and already-invoiced Leistungen charged to
// the given object reference (a user, project or phase id), dated within
// the given number of whole calendar months before the current one, ordered
// by date. The reference is escaped before substitution.
func BookingsQuery(objref string, months int) string {
	if months < 1 {
		months = 1
	}
	var ref bytes.Buffer
	xml.EscapeText(&ref, []byte(objref))

	window := fmt.Sprintf("(datum &gt;= date->firstOfMonth->incMonth(-%d)) and (datum &lt; date->firstOfMonth)", months)
	return fmt.Sprintf(`<Query>
    <Selection>
        <objref>%s</objref>
        <ocl>offeneleistungen->select(%s)->orderby(datum)->union(verrechneteleistungen->select(%s)->orderby(datum))</ocl>
        <sqlorder>datum</sqlorder>
    </Selection>
    <Resultdef>
        <member>datum</member>
        <member>minutenint</member>
        <member>wertint</member>
        <member>wertext</member>
        <member>text</member>
        <member>phase</member>
        <member>projekt</member>
        <member>bearbeiter</member>
        <expression><alias>bearbeiter_name</alias><ocl>bearbeiter.name</ocl></expression>
        <expression><alias>projekt_name</alias><ocl>projekt</ocl></expression>
        <expression><alias>phase_name</alias><ocl>phase.code</ocl></expression>
        <expression><alias>phase_is_billable</alias><ocl>phase.verrechenbar</ocl></expression>
    </Resultdef>
</Query>`, ref.String(), window, window)
}
