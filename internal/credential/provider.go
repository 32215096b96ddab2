// Package credential supplies the optional bearer token attached to requests
// made to the posts service. Tokens are opaque here; nothing is validated.
package credential

import "context"

type Provider interface {
	// Credential returns the current token, or "" when there is none.
	Credential(ctx context.Context) (string, error)
}

type Func func(ctx context.Context) (string, error)

func (f Func) Credential(ctx context.Context) (string, error) {
	return f(ctx)
}

type static string

func Static(token string) Provider {
	return static(token)
}

func (s static) Credential(context.Context) (string, error) {
	return string(s), nil
}

// None never yields a credential.
var None Provider = static("")
