package channel

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"referral-gate-bot/internal/platformsettings/domain"
	"referral-gate-bot/internal/platformsettings/repository"
)

func TestStatic(t *testing.T) {
	s := NewStatic([]string{"@a", "@b"})
	got, err := s.RequiredChannels(context.Background())
	if err != nil || !reflect.DeepEqual(got, []string{"@a", "@b"}) {
		t.Errorf("RequiredChannels = %v, %v", got, err)
	}
	got[0] = "@mutated"
	again, _ := s.RequiredChannels(context.Background())
	if again[0] != "@a" {
		t.Error("callers must not be able to mutate the static set")
	}
	if _, _, err := s.Add(context.Background(), "@c"); !errors.Is(err, ErrStaticChannels) {
		t.Errorf("Add err = %v, want ErrStaticChannels", err)
	}
	if _, _, err := s.Remove(context.Background(), "@a"); !errors.Is(err, ErrStaticChannels) {
		t.Errorf("Remove err = %v, want ErrStaticChannels", err)
	}
}

func TestStatic_Empty(t *testing.T) {
	got, err := NewStatic(nil).RequiredChannels(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("empty static = %v, %v", got, err)
	}
}

func TestDynamic_AddRemove(t *testing.T) {
	d := NewDynamic(repository.NewMemoryRepository(), nil)
	ctx := context.Background()

	got, changed, err := d.Add(ctx, " @news ")
	if err != nil || !changed || !reflect.DeepEqual(got, []string{"@news"}) {
		t.Fatalf("Add = %v, %v, %v", got, changed, err)
	}
	if _, changed, _ := d.Add(ctx, "@news"); changed {
		t.Error("adding twice should be a no-op")
	}
	if _, _, err := d.Add(ctx, "news"); !errors.Is(err, domain.ErrInvalidChannel) {
		t.Errorf("Add(invalid) err = %v, want ErrInvalidChannel", err)
	}
	if _, _, err := d.Add(ctx, "-100555"); err != nil {
		t.Fatalf("Add numeric: %v", err)
	}
	got, _ = d.RequiredChannels(ctx)
	if !reflect.DeepEqual(got, []string{"@news", "-100555"}) {
		t.Errorf("RequiredChannels = %v", got)
	}
	got, changed, err = d.Remove(ctx, "@news")
	if err != nil || !changed || !reflect.DeepEqual(got, []string{"-100555"}) {
		t.Errorf("Remove = %v, %v, %v", got, changed, err)
	}
}

func TestDynamic_Seed(t *testing.T) {
	repo := repository.NewMemoryRepository()
	d := NewDynamic(repo, nil)
	ctx := context.Background()

	if err := d.Seed(ctx, []string{"@a"}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, _, err := d.Remove(ctx, "@a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := d.Seed(ctx, []string{"@a"}); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	got, _ := d.RequiredChannels(ctx)
	if len(got) != 0 {
		t.Errorf("second Seed overwrote an administered record: %v", got)
	}
}

type conflictingRepo struct {
	*repository.MemoryRepository
	conflicts int
}

func (r *conflictingRepo) UpdateChannels(ctx context.Context, channels []string, v int64) (*domain.Settings, error) {
	if r.conflicts > 0 {
		r.conflicts--
		return nil, domain.ErrVersionConflict
	}
	return r.MemoryRepository.UpdateChannels(ctx, channels, v)
}

func TestDynamic_RetriesConflicts(t *testing.T) {
	repo := &conflictingRepo{MemoryRepository: repository.NewMemoryRepository(), conflicts: 2}
	d := NewDynamic(repo, nil)
	if _, changed, err := d.Add(context.Background(), "@a"); err != nil || !changed {
		t.Fatalf("Add after 2 conflicts = %v, %v", changed, err)
	}

	repo.conflicts = maxUpdateAttempts
	if _, _, err := d.Add(context.Background(), "@b"); !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("err = %v, want ErrVersionConflict after exhausting retries", err)
	}
}
