package service

import (
	"context"
	"errors"
	"testing"

	"learnhub_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backfillProfiles 在 fakeProfiles 基础上按 enrolled 集合筛选
type backfillProfiles struct {
	*fakeProfiles
	enrolled map[string]bool
	failFor  map[string]bool
}

func (b *backfillProfiles) FindEnrolledWithoutStudentID(_ context.Context, limit int) ([]model.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Profile
	for id, p := range b.profiles {
		if b.enrolled[id] && !p.HasStudentID() && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (b *backfillProfiles) AssignStudentID(ctx context.Context, id, studentID string) (bool, error) {
	if b.failFor[id] {
		return false, errors.New("duplicate key value violates unique constraint")
	}
	return b.fakeProfiles.AssignStudentID(ctx, id, studentID)
}

func TestStudentIDBackfill(t *testing.T) {
	store := &backfillProfiles{
		fakeProfiles: newFakeProfiles(
			model.Profile{ID: "a", Country: "India", State: "Kerala"},
			model.Profile{ID: "b", Country: "India", State: "Goa"},
			model.Profile{ID: "c", Country: "Canada", State: "Quebec"},
			model.Profile{ID: "d", Country: "India", State: "Bihar", StudentID: strPtr("IN-BR-2024-01-1111")},
			model.Profile{ID: "not-enrolled"},
		),
		enrolled: map[string]bool{"a": true, "b": true, "c": true, "d": true},
		failFor:  map[string]bool{"c": true},
	}
	generator := NewStudentIDGenerator(NewLocationCodes(), NewRemoteStrategy(fakeIDCaller{err: errFunctionMissing}), fixedLocal(4242))

	report, err := NewStudentIDBackfill(store, generator, 1).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Assigned)
	assert.Equal(t, []string{"c"}, report.Failed)
	assert.Equal(t, "IN-KL-2025-06-4242", *store.get("a").StudentID)
	assert.Equal(t, "IN-GA-2025-06-4242", *store.get("b").StudentID)
	assert.Nil(t, store.get("c").StudentID)
	assert.Equal(t, "IN-BR-2024-01-1111", *store.get("d").StudentID)
	assert.Nil(t, store.get("not-enrolled").StudentID)
}

func TestStudentIDBackfillDryRun(t *testing.T) {
	store := &backfillProfiles{
		fakeProfiles: newFakeProfiles(model.Profile{ID: "a", Country: "India", State: "Kerala"}),
		enrolled:     map[string]bool{"a": true},
	}
	generator := NewStudentIDGenerator(NewLocationCodes(), NewRemoteStrategy(fakeIDCaller{err: errFunctionMissing}), fixedLocal(4242))

	backfill := NewStudentIDBackfill(store, generator, 10)
	backfill.DryRun = true
	report, err := backfill.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Assigned)
	assert.Nil(t, store.get("a").StudentID)
}
