package store_test

import (
	"errors"
	"testing"

	"github.com/Alia5/remapd/profile"
	"github.com/Alia5/remapd/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T, seed ...*profile.Profile) (*store.Store, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(seed...)
	s, err := store.Open(mem, store.Config{}, nil)
	require.NoError(t, err)
	return s, mem
}

func fpsProfile() *profile.Profile {
	return &profile.Profile{
		Name:       "fps",
		DeviceType: profile.XboxController,
		Actions: []profile.Action{
			{Name: "forward", InputID: "W", OutputID: profile.DpadUp, OutputKind: profile.Button},
		},
	}
}

func TestCreateProfile(t *testing.T) {
	s, mem := openMemory(t)

	p, err := s.CreateProfile("fps")
	require.NoError(t, err)
	assert.Equal(t, "fps", p.Name)
	assert.Equal(t, profile.DefaultDeviceType, p.DeviceType)
	assert.Empty(t, p.Actions)

	_, err = s.CreateProfile("fps")
	assert.ErrorIs(t, err, profile.ErrDuplicateName)
	assert.Equal(t, []string{"fps"}, s.ListProfiles())

	persisted, _ := mem.LoadAll()
	assert.Len(t, persisted, 1)

	for _, bad := range []string{"", "   ", "a/b"} {
		_, err := s.CreateProfile(bad)
		assert.ErrorIs(t, err, profile.ErrInvalidName, "name %q", bad)
	}
	assert.Len(t, s.ListProfiles(), 1)
}

func TestListProfilesKeepsInsertionOrder(t *testing.T) {
	s, _ := openMemory(t)
	for _, n := range []string{"zeta", "alpha", "mid"} {
		_, err := s.CreateProfile(n)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, s.ListProfiles())
}

func TestLoadProfileReturnsCopy(t *testing.T) {
	s, _ := openMemory(t, fpsProfile())

	p, err := s.LoadProfile("fps")
	require.NoError(t, err)
	p.Actions = nil

	again, err := s.LoadProfile("fps")
	require.NoError(t, err)
	assert.Len(t, again.Actions, 1)

	_, err = s.LoadProfile("missing")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestDeleteProfile(t *testing.T) {
	s, mem := openMemory(t, fpsProfile())
	require.NoError(t, s.SetActiveProfile("fps"))

	require.NoError(t, s.DeleteProfile("fps"))
	_, err := s.LoadProfile("fps")
	assert.ErrorIs(t, err, profile.ErrNotFound)
	_, ok := s.ActiveProfile()
	assert.False(t, ok, "deleting the active profile clears it")
	active, _ := mem.LoadActive()
	assert.Empty(t, active)

	persisted, _ := mem.LoadAll()
	assert.Empty(t, persisted)

	assert.NoError(t, s.DeleteProfile("fps"), "deleting twice is a no-op")
	assert.NoError(t, s.DeleteProfile("never-existed"))
}

func TestSetActiveProfile(t *testing.T) {
	s, _ := openMemory(t)

	err := s.SetActiveProfile("missing")
	assert.ErrorIs(t, err, profile.ErrNotFound)
	_, ok := s.ActiveProfile()
	assert.False(t, ok)

	_, err = s.CreateProfile("fps")
	require.NoError(t, err)
	_, err = s.CreateProfile("racing")
	require.NoError(t, err)
	require.NoError(t, s.SetActiveProfile("fps"))

	assert.ErrorIs(t, s.SetActiveProfile("missing"), profile.ErrNotFound)
	name, ok := s.ActiveProfile()
	assert.True(t, ok)
	assert.Equal(t, "fps", name, "failed activation keeps the prior profile")

	s.ClearActive()
	_, ok = s.ActiveProfile()
	assert.False(t, ok)
}

func TestUpsertAction(t *testing.T) {
	s, mem := openMemory(t)
	_, err := s.CreateProfile("fps")
	require.NoError(t, err)

	require.NoError(t, s.UpsertAction("fps", profile.Action{InputID: "W", OutputID: profile.DpadUp}))
	require.NoError(t, s.UpsertAction("fps", profile.Action{InputID: "S", OutputID: profile.DpadDown}))
	require.NoError(t, s.UpsertAction("fps", profile.Action{InputID: "W", OutputID: profile.XboxY, OutputKind: profile.Button}))

	p, err := s.LoadProfile("fps")
	require.NoError(t, err)
	var ws []profile.Action
	for _, a := range p.Actions {
		if a.InputID == "W" {
			ws = append(ws, a)
		}
	}
	require.Len(t, ws, 1, "exactly one action per input id")
	assert.Equal(t, profile.XboxY, ws[0].OutputID, "latest upsert wins")

	persisted, _ := mem.LoadAll()
	require.Len(t, persisted, 1)
	assert.Len(t, persisted[0].Actions, 2)

	err = s.UpsertAction("missing", profile.Action{InputID: "W", OutputID: profile.DpadUp})
	assert.ErrorIs(t, err, profile.ErrNotFound)

	err = s.UpsertAction("fps", profile.Action{InputID: "W", OutputID: profile.PlayStationCross})
	assert.ErrorIs(t, err, profile.ErrValidation)
	var ve *profile.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "fps", ve.Profile)

	p, _ = s.LoadProfile("fps")
	a, _ := p.Action("W")
	assert.Equal(t, profile.XboxY, a.OutputID, "rejected upsert leaves the profile alone")
}

func TestRemoveAction(t *testing.T) {
	s, _ := openMemory(t, fpsProfile())

	require.NoError(t, s.RemoveAction("fps", "W"))
	assert.ErrorIs(t, s.RemoveAction("fps", "W"), profile.ErrNotFound)
	assert.ErrorIs(t, s.RemoveAction("missing", "W"), profile.ErrNotFound)

	p, _ := s.LoadProfile("fps")
	assert.Empty(t, p.Actions)
}

func TestRenameProfile(t *testing.T) {
	s, mem := openMemory(t, fpsProfile())
	_, err := s.CreateProfile("racing")
	require.NoError(t, err)
	require.NoError(t, s.SetActiveProfile("fps"))

	require.NoError(t, s.RenameProfile("fps", "shooter"))
	assert.Equal(t, []string{"shooter", "racing"}, s.ListProfiles())

	p, err := s.LoadProfile("shooter")
	require.NoError(t, err)
	assert.Equal(t, "shooter", p.Name)
	assert.Len(t, p.Actions, 1)

	active, _ := s.ActiveProfile()
	assert.Equal(t, "shooter", active)

	_, err = s.LoadProfile("fps")
	assert.ErrorIs(t, err, profile.ErrNotFound)
	persisted, _ := mem.LoadAll()
	assert.Len(t, persisted, 2)

	assert.ErrorIs(t, s.RenameProfile("shooter", "racing"), profile.ErrDuplicateName)
	assert.ErrorIs(t, s.RenameProfile("missing", "other"), profile.ErrNotFound)
	assert.ErrorIs(t, s.RenameProfile("shooter", " "), profile.ErrInvalidName)
}

func TestResolve(t *testing.T) {
	s, _ := openMemory(t)
	_, err := s.CreateProfile("fps")
	require.NoError(t, err)
	require.NoError(t, s.UpsertAction("fps", profile.Action{InputID: "W", OutputID: profile.DpadUp}))
	s.ClearActive()

	_, ok := s.Resolve("W")
	assert.False(t, ok, "nothing resolves without an active profile")

	require.NoError(t, s.SetActiveProfile("fps"))
	b, ok := s.Resolve("W")
	require.True(t, ok)
	assert.Equal(t, "fps", b.Profile)
	assert.Equal(t, profile.XboxController, b.DeviceType)
	assert.Equal(t, profile.DpadUp, b.Action.OutputID)

	_, ok = s.Resolve("Q")
	assert.False(t, ok)
}

func TestOpenSelection(t *testing.T) {
	seed := func() *store.Memory {
		mem := store.NewMemory(
			&profile.Profile{Name: "zeta", DeviceType: profile.XboxController},
			&profile.Profile{Name: "alpha", DeviceType: profile.XboxController},
		)
		return mem
	}

	tests := []struct {
		name       string
		selection  store.Selection
		lastActive string
		want       string
	}{
		{name: "default restores last active", lastActive: "zeta", want: "zeta"},
		{name: "last active falls back to first", selection: store.SelectLastActive, lastActive: "gone", want: "alpha"},
		{name: "first by name", selection: store.SelectFirstByName, lastActive: "zeta", want: "alpha"},
		{name: "none", selection: store.SelectNone, lastActive: "zeta", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := seed()
			require.NoError(t, mem.SaveActive(tt.lastActive))
			s, err := store.Open(mem, store.Config{Selection: tt.selection}, nil)
			require.NoError(t, err)
			got, _ := s.ActiveProfile()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"alpha", "zeta"}, s.ListProfiles(), "load order is by name")
		})
	}

	_, err := store.Open(seed(), store.Config{Selection: "random"}, nil)
	assert.Error(t, err)

	empty, err := store.Open(store.NewMemory(), store.Config{}, nil)
	require.NoError(t, err)
	_, ok := empty.ActiveProfile()
	assert.False(t, ok)
}

func TestReload(t *testing.T) {
	mem := store.NewMemory(fpsProfile())
	s, err := store.Open(mem, store.Config{}, nil)
	require.NoError(t, err)
	_, err = s.CreateProfile("racing")
	require.NoError(t, err)
	require.NoError(t, s.SetActiveProfile("racing"))

	require.NoError(t, mem.Save(&profile.Profile{Name: "arcade", DeviceType: profile.PlayStationController}))
	require.NoError(t, s.Reload())
	assert.Equal(t, []string{"fps", "racing", "arcade"}, s.ListProfiles())
	active, _ := s.ActiveProfile()
	assert.Equal(t, "racing", active, "surviving active profile is kept")

	require.NoError(t, mem.Delete("racing"))
	require.NoError(t, s.Reload())
	assert.Equal(t, []string{"fps", "arcade"}, s.ListProfiles())
	active, _ = s.ActiveProfile()
	assert.Equal(t, "arcade", active, "vanished active profile is replaced by policy")
}

func TestReloadKeepsClearedSelection(t *testing.T) {
	tests := []struct {
		name  string
		clear func(s *store.Store) error
	}{
		{name: "delete active profile", clear: func(s *store.Store) error { return s.DeleteProfile("fps") }},
		{name: "clear active", clear: func(s *store.Store) error { s.ClearActive(); return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory(
				fpsProfile(),
				&profile.Profile{Name: "racing", DeviceType: profile.PlayStationController},
				&profile.Profile{Name: "arcade", DeviceType: profile.XboxController},
			)
			s, err := store.Open(mem, store.Config{}, nil)
			require.NoError(t, err)
			require.NoError(t, s.SetActiveProfile("fps"))

			require.NoError(t, tt.clear(s))
			require.NoError(t, s.Reload())
			_, ok := s.ActiveProfile()
			assert.False(t, ok, "selection stays unset across reloads")

			require.NoError(t, s.SetActiveProfile("racing"))
			require.NoError(t, mem.Delete("racing"))
			require.NoError(t, s.Reload())
			active, _ := s.ActiveProfile()
			assert.Equal(t, "arcade", active, "policy applies again once a profile was activated")
		})
	}
}

type failingBackend struct {
	*store.Memory
	err error
}

func (f *failingBackend) Save(*profile.Profile) error { return f.err }
func (f *failingBackend) Delete(string) error         { return f.err }

func TestPersistenceFailuresLeaveStoreUnchanged(t *testing.T) {
	boom := errors.New("disk full")
	backend := &failingBackend{Memory: store.NewMemory(fpsProfile()), err: boom}
	s, err := store.Open(backend, store.Config{}, nil)
	require.NoError(t, err)

	_, err = s.CreateProfile("racing")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"fps"}, s.ListProfiles())

	assert.ErrorIs(t, s.DeleteProfile("fps"), boom)
	_, err = s.LoadProfile("fps")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.UpsertAction("fps", profile.Action{InputID: "S", OutputID: profile.DpadDown}), boom)
	p, _ := s.LoadProfile("fps")
	assert.Len(t, p.Actions, 1)
}
