// Package tokens issues and verifies the first-party session tokens of the
// rallyauth server.
//
// Tokens are RS256 signed JSON Web Tokens. There are two kinds:
//
//   - AccessToken: short-lived (15 minutes), carries sub and email
//   - RefreshToken: long-lived (7 days), carries sub and a per-issuance tokenId
//
// # Issuing
//
// The server loads its key pair once at startup and builds a Server:
//
//	issuer, verifier, err := tokens.InitServer(tokens.Config{
//	    SigningKey: privateKey,
//	    Issuer:     "justrally-auth",
//	    Audience:   "justrally-app",
//	})
//
//	access, err := issuer.IssueAccessToken(userID, email)
//	refresh, err := issuer.IssueRefreshToken(userID)
//
// # Verifying
//
//	token, err := verifier.VerifyAccessToken(encoded)
//	if errors.Is(err, tokens.ErrUnauthorized) {
//	    // expired, malformed, wrong key, wrong issuer/audience, missing claim
//	}
//
// Verification errors never say why a token was refused. Use Reason(err)
// to recover the internal cause for logs.
package tokens
