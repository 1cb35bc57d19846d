// Package client lets other JustRally backends accept rallyauth sessions.
//
// Access tokens are verified locally with the server's public key, so
// protecting a route costs no network call. Refresh and logout go to the
// server.
//
// # Quick Start
//
//	publicKey, err := tokens.LoadPublicKeyFile("rallyauth-public.pem")
//	verifier, err := tokens.InitVerifier(publicKey, "justrally-auth", "justrally-app")
//
//	authClient, err := client.New(client.Config{
//	    Verifier: verifier,
//	    AuthURL:  "https://auth.example.com/api/v1",
//	})
//
// # Protecting Routes
//
//	mux.Handle("/matches", authClient.Middleware(matchesHandler))
//
//	func matchesHandler(w http.ResponseWriter, r *http.Request) {
//	    token, _ := client.AccessTokenFrom(r.Context())
//	    userID := token.Subject()
//	    ...
//	}
//
// Or check a request directly:
//
//	token, err := authClient.VerifyAuthorization(r)
//	switch {
//	case errors.Is(err, client.ErrNoToken):
//	    // no bearer header
//	case errors.Is(err, client.ErrTokenInvalid):
//	    // expired, tampered, or issued by someone else
//	}
//
// # Refreshing
//
//	pair, err := authClient.RefreshTokens(ctx, refreshToken)
//	if errors.Is(err, client.ErrTokenInvalid) {
//	    // the user has to log in again
//	}
//
// # Testing
//
// For testability, depend on the Verifier interface rather than *Client.
package client
