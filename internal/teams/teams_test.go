package teams_test

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/judgefire/judgefire/internal/teams"
)

func TestNewRoster(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	roster := teams.NewRoster(rnd, 3, 5, []string{"Test University"}, "")

	if len(roster) != 3 {
		t.Fatalf("expected 3 teams, got %d", len(roster))
	}
	wantIDs := []string{"team006", "team007", "team008"}
	for i, team := range roster {
		if team.ID != wantIDs[i] {
			t.Errorf("team %d: id %q, expected %q", i, team.ID, wantIDs[i])
		}
		if team.ID != team.Username || team.ID != team.Label || team.ID != team.ICPCID {
			t.Errorf("team %d: id, label, icpc id and username must agree: %+v", i, team)
		}
		if team.TeamNum != 6+i {
			t.Errorf("team %d: teamnum %d, expected %d", i, team.TeamNum, 6+i)
		}
		if team.Affiliation != "Test University" {
			t.Errorf("team %d: affiliation %q, expected the pool entry", i, team.Affiliation)
		}
		if team.Password != teams.DefaultPassword {
			t.Errorf("team %d: empty password should default to %q", i, teams.DefaultPassword)
		}
		if team.Name == "" || team.UserFullName == "" {
			t.Errorf("team %d: missing generated names: %+v", i, team)
		}
		if team.GroupID != "participants" {
			t.Errorf("team %d: group %q, expected participants", i, team.GroupID)
		}
	}
}

func TestNewRosterDeterministic(t *testing.T) {
	a := teams.NewRoster(rand.New(rand.NewSource(7)), 5, 0, nil, "pw")
	b := teams.NewRoster(rand.New(rand.NewSource(7)), 5, 0, nil, "pw")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("team %d differs across runs with the same seed", i)
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams.csv")
	store := teams.NewStore(path)

	empty, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty roster from missing file, got %d", len(empty))
	}

	first := teams.NewRoster(rand.New(rand.NewSource(1)), 2, 0, nil, "pw")
	if err := store.Append(first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	second := teams.NewRoster(rand.New(rand.NewSource(2)), 1, 2, nil, "pw")
	if err := store.Append(second); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := append(append([]teams.Team(nil), first...), second...)
	if len(loaded) != len(want) {
		t.Fatalf("loaded %d teams, expected %d", len(loaded), len(want))
	}
	for i := range want {
		if loaded[i] != want[i] {
			t.Errorf("team %d: loaded %+v, expected %+v", i, loaded[i], want[i])
		}
	}
}

type fakeRegistrar struct {
	teamCalls []string
	userCalls []string
	teamErr   error
	userErr   error
	// platformID, when set, is returned instead of echoing the team id.
	platformID string
}

func (r *fakeRegistrar) RegisterTeam(_ context.Context, t teams.Team) (string, error) {
	r.teamCalls = append(r.teamCalls, t.ID)
	if r.teamErr != nil {
		return "", r.teamErr
	}
	if r.platformID != "" {
		return r.platformID, nil
	}
	return t.ID, nil
}

func (r *fakeRegistrar) RegisterUser(_ context.Context, t teams.Team, _ string) error {
	r.userCalls = append(r.userCalls, t.Username)
	return r.userErr
}

func TestProvisionGeneratesAndRegisters(t *testing.T) {
	store := teams.NewStore(filepath.Join(t.TempDir(), "teams.csv"))
	reg := &fakeRegistrar{}
	prov, err := teams.NewProvisioner(teams.ProvisionerOptions{
		Store:     store,
		Registrar: reg,
		Rand:      rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("NewProvisioner: %v", err)
	}

	roster, err := prov.Provision(context.Background(), 4)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if len(roster) != 4 {
		t.Fatalf("expected 4 teams, got %d", len(roster))
	}
	if len(reg.teamCalls) != 4 || len(reg.userCalls) != 4 {
		t.Errorf("expected 4 team and 4 user registrations, got %d/%d",
			len(reg.teamCalls), len(reg.userCalls))
	}
	for i, team := range roster {
		if team.PlatformID != team.ID {
			t.Errorf("team %d: platform id %q, expected %q", i, team.PlatformID, team.ID)
		}
	}

	// The roster is persisted for reuse.
	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(persisted) != 4 {
		t.Errorf("expected 4 persisted teams, got %d", len(persisted))
	}
}

func TestProvisionReusesPersistedTeams(t *testing.T) {
	store := teams.NewStore(filepath.Join(t.TempDir(), "teams.csv"))
	seeded := teams.NewRoster(rand.New(rand.NewSource(1)), 5, 0, nil, "pw")
	if err := store.Append(seeded); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reg := &fakeRegistrar{}
	prov, err := teams.NewProvisioner(teams.ProvisionerOptions{
		Store:     store,
		Registrar: reg,
		Rand:      rand.New(rand.NewSource(2)),
	})
	if err != nil {
		t.Fatalf("NewProvisioner: %v", err)
	}

	roster, err := prov.Provision(context.Background(), 3)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	for i := range roster {
		if roster[i].ID != seeded[i].ID {
			t.Errorf("team %d: expected reuse of persisted %q, got %q", i, seeded[i].ID, roster[i].ID)
		}
	}

	// No extra teams were appended.
	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(persisted) != 5 {
		t.Errorf("expected the persisted roster untouched, got %d teams", len(persisted))
	}
}

func TestProvisionTopsUpPersistedTeams(t *testing.T) {
	store := teams.NewStore(filepath.Join(t.TempDir(), "teams.csv"))
	seeded := teams.NewRoster(rand.New(rand.NewSource(1)), 2, 0, nil, "pw")
	if err := store.Append(seeded); err != nil {
		t.Fatalf("Append: %v", err)
	}

	prov, err := teams.NewProvisioner(teams.ProvisionerOptions{
		Store:     store,
		Registrar: &fakeRegistrar{},
		Rand:      rand.New(rand.NewSource(2)),
	})
	if err != nil {
		t.Fatalf("NewProvisioner: %v", err)
	}

	roster, err := prov.Provision(context.Background(), 5)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if len(roster) != 5 {
		t.Fatalf("expected 5 teams, got %d", len(roster))
	}
	// Generated ids continue after the persisted ones.
	if roster[2].ID != "team003" || roster[4].ID != "team005" {
		t.Errorf("unexpected generated ids: %q, %q", roster[2].ID, roster[4].ID)
	}

	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(persisted) != 5 {
		t.Errorf("expected 5 persisted teams after top-up, got %d", len(persisted))
	}
}

func TestProvisionTreatsRegistrationFailureAsExisting(t *testing.T) {
	store := teams.NewStore(filepath.Join(t.TempDir(), "teams.csv"))
	reg := &fakeRegistrar{
		teamErr: errors.New("400: team already exists"),
		userErr: errors.New("400: user already exists"),
	}
	prov, err := teams.NewProvisioner(teams.ProvisionerOptions{
		Store:     store,
		Registrar: reg,
		Rand:      rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("NewProvisioner: %v", err)
	}

	roster, err := prov.Provision(context.Background(), 2)
	if err != nil {
		t.Fatalf("registration conflicts should not fail provisioning: %v", err)
	}
	for i, team := range roster {
		if team.PlatformID != team.ID {
			t.Errorf("team %d: expected the local id as fallback, got %q", i, team.PlatformID)
		}
	}
}

func TestProvisionUsesAssignedPlatformID(t *testing.T) {
	store := teams.NewStore(filepath.Join(t.TempDir(), "teams.csv"))
	reg := &fakeRegistrar{platformID: "42"}
	prov, err := teams.NewProvisioner(teams.ProvisionerOptions{
		Store:     store,
		Registrar: reg,
		Rand:      rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("NewProvisioner: %v", err)
	}

	roster, err := prov.Provision(context.Background(), 1)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if roster[0].PlatformID != "42" {
		t.Errorf("platform id %q, expected the registrar's answer", roster[0].PlatformID)
	}
}
