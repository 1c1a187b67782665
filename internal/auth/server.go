package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthTimeout is how long to wait for the user to complete auth
const AuthTimeout = 5 * time.Minute

// successPage is shown in the browser once the code has been received
const successPage = `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body style="font-family: system-ui; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #FC4C02;">Success!</h1>
<p>You can close this window and return to the terminal.</p>
</div>
</body>
</html>`

// CallbackHandler verifies the state of an authorize callback and hands the
// code to deliver, which completes the sign-in. Failures before that point
// reach deliver with an empty code and a non-nil err. The success page is
// only shown when deliver returns nil. It is shared by the CLI login flow
// and the relay server.
func CallbackHandler(client *OAuthClient, deliver func(code string, err error) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if !client.VerifyState(q.Get("state")) {
			deliver("", ErrStateMismatch)
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}

		if errMsg := q.Get("error"); errMsg != "" {
			deliver("", fmt.Errorf("auth error: %s", errMsg))
			http.Error(w, "Authentication failed", http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			deliver("", errors.New("no code in callback"))
			http.Error(w, "No authorization code", http.StatusBadRequest)
			return
		}

		if err := deliver(code, nil); err != nil {
			http.Error(w, "Authentication failed", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, successPage)
	}
}

// Authenticate runs the OAuth flow with a temporary local callback server
// listening on the redirect URL's host. prompt receives the authorize URL to
// show the user. The code is exchanged and persisted through the gate before
// the browser gets its answer.
func Authenticate(ctx context.Context, client *OAuthClient, gate *Gate, prompt func(authURL string)) error {
	redirect, err := url.Parse(client.config.RedirectURL)
	if err != nil {
		return fmt.Errorf("parsing redirect URL: %w", err)
	}

	// first outcome wins; later callbacks are ignored
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	mux := callbackMux(redirect.Path, CallbackHandler(client, func(code string, err error) error {
		if err != nil {
			finish(err)
			return err
		}
		if _, err := gate.Login(ctx, code); err != nil {
			err = fmt.Errorf("exchanging code for token: %w", err)
			finish(err)
			return err
		}
		finish(nil)
		return nil
	}))

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("starting callback server: %w", err)
	}

	server := &http.Server{Handler: mux}
	defer shutdownServer(server)

	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			finish(fmt.Errorf("server error: %w", err))
		}
	}()

	authURL, _, err := client.BuildAuthorizationURL()
	if err != nil {
		return err
	}
	prompt(authURL)

	select {
	case err := <-done:
		return err
	case <-time.After(AuthTimeout):
		return fmt.Errorf("authentication timeout after %v", AuthTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callbackMux serves handler on exactly path. Requests that carry none of
// the authorize callback parameters get 404 so stray browser requests such as
// /favicon.ico cannot end the flow.
func callbackMux(path string, handler http.HandlerFunc) *http.ServeMux {
	pattern := path
	if pattern == "" {
		pattern = "/"
	}
	if strings.HasSuffix(pattern, "/") {
		pattern += "{$}"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !q.Has("state") && !q.Has("code") && !q.Has("error") {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	})
	return mux
}

// shutdownServer gracefully shuts down the HTTP server
func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
