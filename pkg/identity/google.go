package identity

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleAuthURL builds the interactive Google auth URL a UI surface opens to
// obtain an id_token for SignInWithIDToken. The implicit id_token response
// keeps the flow client-side; no authorization code ever reaches this
// process.
func GoogleAuthURL(clientID, redirectURL, state, nonce string) string {
	conf := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Scopes:      []string{"openid", "email", "profile"},
		Endpoint:    google.Endpoint,
	}

	return conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", "id_token"),
		oauth2.SetAuthURLParam("nonce", nonce),
	)
}
