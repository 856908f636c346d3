package services

import "context"

// TokenLister lists every registered recipient token.
type TokenLister interface {
	ListAll(ctx context.Context) ([]string, error)
}

// RecipientSource resolves the recipient set for a job. For deferred jobs it
// is invoked at fire time, not at acceptance, so tokens registered while the
// job was pending are included.
type RecipientSource interface {
	Resolve(ctx context.Context) ([]string, error)
}

type singleRecipient string

func (s singleRecipient) Resolve(context.Context) ([]string, error) {
	return []string{string(s)}, nil
}

// SingleRecipient targets the one token captured at acceptance.
func SingleRecipient(token string) RecipientSource {
	return singleRecipient(token)
}

type registryMembers struct {
	lister TokenLister
}

func (r registryMembers) Resolve(ctx context.Context) ([]string, error) {
	return r.lister.ListAll(ctx)
}

// RegistryMembers snapshots all current registry members when resolved.
func RegistryMembers(lister TokenLister) RecipientSource {
	return registryMembers{lister: lister}
}
