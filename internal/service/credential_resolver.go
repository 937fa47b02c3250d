package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yourorg/flowhub/internal/domain"
)

// CredentialResolver repairs stale or name-only credential references on
// workflow nodes before execution. Ambiguity is never auto-resolved: a
// reference that cannot be pinned to exactly one stored credential is left
// as-is for downstream validation to reject.
type CredentialResolver struct {
	credentials domain.CredentialRepository
	logger      *slog.Logger
}

// NewCredentialResolver creates a credential resolver
func NewCredentialResolver(credentials domain.CredentialRepository, logger *slog.Logger) *CredentialResolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &CredentialResolver{
		credentials: credentials,
		logger:      logger,
	}
}

// ResolveWorkflowCredentials walks every enabled node of wf and rewrites its
// credential references in place. Lookups are cached for the duration of the
// call, so many nodes sharing one credential cost one store query.
func (r *CredentialResolver) ResolveWorkflowCredentials(ctx context.Context, wf *domain.Workflow) error {
	byName := map[string]map[string]domain.CredentialRef{}
	byID := map[string]map[string]domain.CredentialRef{}

	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		if node.Disabled || len(node.Credentials) == 0 {
			continue
		}

		for credType, ref := range node.Credentials {
			var resolved domain.CredentialRef
			var err error
			if ref.ID == "" {
				resolved, err = r.resolveByName(ctx, byName, credType, ref)
			} else {
				resolved, err = r.resolveByID(ctx, byID, credType, ref)
			}
			if err != nil {
				return err
			}
			node.Credentials[credType] = resolved
		}
	}

	return nil
}

// resolveByName pins a name-only reference to the first credential matching
// (name, type). A miss produces a placeholder with no id, marking the node
// unresolved without failing the pass.
func (r *CredentialResolver) resolveByName(
	ctx context.Context,
	cache map[string]map[string]domain.CredentialRef,
	credType string,
	ref domain.CredentialRef,
) (domain.CredentialRef, error) {
	if cached, ok := cache[credType][ref.Name]; ok {
		return cached, nil
	}

	matches, err := r.credentials.FindManyByNameAndType(ctx, ref.Name, credType)
	if err != nil {
		return ref, err
	}

	resolved := domain.CredentialRef{Name: ref.Name}
	if len(matches) > 0 {
		resolved = domain.CredentialRef{ID: matches[0].ID, Name: matches[0].Name}
	} else {
		r.logger.Warn("credential not found by name",
			slog.String("name", ref.Name),
			slog.String("type", credType),
		)
	}

	if cache[credType] == nil {
		cache[credType] = map[string]domain.CredentialRef{}
	}
	cache[credType][ref.Name] = resolved
	return resolved, nil
}

// resolveByID verifies an id-keyed reference, falling back to a name lookup
// when the id no longer exists. Only an unambiguous single name match is
// promoted; zero or multiple matches keep the original reference.
func (r *CredentialResolver) resolveByID(
	ctx context.Context,
	cache map[string]map[string]domain.CredentialRef,
	credType string,
	ref domain.CredentialRef,
) (domain.CredentialRef, error) {
	if cached, ok := cache[credType][ref.ID]; ok {
		return cached, nil
	}

	resolved := ref

	match, err := r.credentials.FindByIDAndType(ctx, ref.ID, credType)
	switch {
	case err == nil:
		resolved = domain.CredentialRef{ID: match.ID, Name: match.Name}
	case errors.Is(err, domain.ErrCredentialNotFound):
		byName, nameErr := r.credentials.FindManyByNameAndType(ctx, ref.Name, credType)
		if nameErr != nil {
			return ref, nameErr
		}
		if len(byName) == 1 {
			resolved = domain.CredentialRef{ID: byName[0].ID, Name: byName[0].Name}
		} else {
			r.logger.Warn("credential reference left unresolved",
				slog.String("id", ref.ID),
				slog.String("name", ref.Name),
				slog.String("type", credType),
				slog.Int("name_matches", len(byName)),
			)
		}
	default:
		return ref, err
	}

	if cache[credType] == nil {
		cache[credType] = map[string]domain.CredentialRef{}
	}
	cache[credType][ref.ID] = resolved
	return resolved, nil
}
