package domain

import "context"

// ServicePort is the capsule workflow surface used by the http layer
// every call names the authenticated caller as owner
type ServicePort interface {
	Create(ctx context.Context, owner string, in CreateInput, images []Upload) (CapsuleView, error)
	List(ctx context.Context, owner string) ([]ListEntry, error)
	// Get returns LockedView or UnlockedView
	Get(ctx context.Context, owner, id string) (any, error)
	AddVideos(ctx context.Context, owner, id string, videos []Upload) (AppendResult, error)
	AddAudio(ctx context.Context, owner, id string, audio []Upload) (AppendResult, error)
}
