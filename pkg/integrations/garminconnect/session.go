package garminconnect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	httputil "github.com/fitglue/garminconnect/pkg/infrastructure/http"
	"github.com/fitglue/garminconnect/pkg/observability"
)

// Extended authorization keys holding the encrypted login credentials.
const (
	AuthEmail    = "Email"
	AuthPassword = "Password"
)

// Account references one linked Garmin Connect account.
type Account struct {
	// ExternalID is the remote username; it keys the session cache.
	ExternalID string
	// ExtendedAuthorization holds credential blobs produced by the credential store.
	ExtendedAuthorization map[string]string
}

// Authenticate logs in with plain credentials and looks up the remote username.
func (c *Client) Authenticate(ctx context.Context, identity, secret string) (string, *Session, error) {
	session, err := c.login(ctx, identity, secret)
	if err != nil {
		return "", nil, err
	}
	rec, err := c.getRecord(ctx, session, usernamePath, nil)
	if err != nil {
		return "", nil, fmt.Errorf("fetch username: %w", err)
	}
	username, _ := rec.String("username")
	if username == "" {
		return "", nil, &AuthenticationError{
			Message:              "unable to retrieve username",
			Block:                true,
			InterventionRequired: true,
		}
	}
	c.logger.Info("authenticated with garmin connect", "username", username)
	return username, session, nil
}

// GetSession returns a cached session for the account, logging in on a miss.
// Two callers missing at once both log in; the last one stored wins.
func (c *Client) GetSession(ctx context.Context, account Account) (*Session, error) {
	if s, ok := c.cache.Get(account.ExternalID); ok {
		observability.RecordCacheLookup(true)
		return s, nil
	}
	observability.RecordCacheLookup(false)

	if c.credentials == nil {
		return nil, errors.New("no credential store configured")
	}
	email, err := c.decrypt(account, AuthEmail)
	if err != nil {
		return nil, err
	}
	password, err := c.decrypt(account, AuthPassword)
	if err != nil {
		return nil, err
	}

	session, err := c.login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.cache.Set(account.ExternalID, session)
	c.logger.Debug("session cached", "account", account.ExternalID)
	return session, nil
}

func (c *Client) decrypt(account Account, key string) (string, error) {
	blob, ok := account.ExtendedAuthorization[key]
	if !ok || blob == "" {
		return "", &AuthenticationError{
			Message:              fmt.Sprintf("stored %s missing", strings.ToLower(key)),
			Block:                true,
			InterventionRequired: true,
		}
	}
	plain, err := c.credentials.Decrypt(blob)
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", strings.ToLower(key), err)
	}
	return plain, nil
}

// login runs the sign-in form exchange. The remote signals success with a
// 302; any other status means the credentials were rejected.
func (c *Client) login(ctx context.Context, email, password string) (*Session, error) {
	preReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(signinPath, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	preResp, err := c.http.Do(preReq)
	if err != nil {
		observability.RecordLogin("error")
		return nil, fmt.Errorf("fetch signin page: %w", err)
	}
	io.Copy(io.Discard, io.LimitReader(preResp.Body, maxResponseSize))
	preResp.Body.Close()
	if preResp.StatusCode >= 500 && preResp.StatusCode < 600 {
		observability.RecordLogin("transient")
		return nil, &TransientServiceError{StatusCode: preResp.StatusCode, Message: "signin page unavailable"}
	}
	cookies := preResp.Cookies()

	form := url.Values{
		"login":                    {"login"},
		"login:loginUsernameField": {email},
		"login:password":           {password},
		"login:signInButton":       {"Sign In"},
		"javax.faces.ViewState":    {"j_id1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(signinPath, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	noRedirect := *c.http
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noRedirect.Do(req)
	if err != nil {
		observability.RecordLogin("error")
		return nil, fmt.Errorf("submit signin form: %w", err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		observability.RecordLogin("transient")
		return nil, &TransientServiceError{StatusCode: resp.StatusCode, Message: "remote api failure"}
	case resp.StatusCode != http.StatusFound:
		observability.RecordLogin("rejected")
		c.logger.Warn("garmin connect rejected login", "status", resp.StatusCode)
		return nil, &AuthenticationError{
			Message:              fmt.Sprintf("invalid login (status %d)", resp.StatusCode),
			Block:                true,
			InterventionRequired: true,
		}
	}

	observability.RecordLogin("success")
	return NewSession(mergeCookies(cookies, resp.Cookies())), nil
}

// mergeCookies overlays later cookies onto earlier ones by name.
func mergeCookies(base, overlay []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(base)+len(overlay))
	index := map[string]int{}
	for _, set := range [][]*http.Cookie{base, overlay} {
		for _, ck := range set {
			if i, ok := index[ck.Name]; ok {
				out[i] = ck
				continue
			}
			index[ck.Name] = len(out)
			out = append(out, ck)
		}
	}
	return out
}

// dropRejected forgets the account's cached session when the remote
// refused it, so the next call logs in again.
func (c *Client) dropRejected(account Account, err error) {
	switch status := httputil.StatusCode(err); status {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.cache.Delete(account.ExternalID)
		c.logger.Warn("session rejected, dropped from cache", "account", account.ExternalID, "status", status)
	}
}
