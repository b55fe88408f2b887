package teams

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Registrar registers teams and their user accounts with the contest
// platform.
type Registrar interface {
	// RegisterTeam creates the team and returns its platform id.
	RegisterTeam(ctx context.Context, t Team) (string, error)
	// RegisterUser creates the team's login, bound to the platform team id.
	RegisterUser(ctx context.Context, t Team, platformTeamID string) error
}

// ProvisionerOptions configures roster provisioning.
type ProvisionerOptions struct {
	Store     *Store
	Registrar Registrar
	// Rand drives fake-name generation. It must be independent from the
	// event generator's source, so roster size cannot perturb the workload.
	Rand            *rand.Rand
	AffiliationPool []string
	Password        string
}

// Provisioner supplies the requested number of registered teams, reusing
// persisted ones and generating the remainder.
type Provisioner struct {
	opt ProvisionerOptions
}

func NewProvisioner(opt ProvisionerOptions) (*Provisioner, error) {
	if opt.Store == nil {
		return nil, fmt.Errorf("teams: store is required")
	}
	if opt.Registrar == nil {
		return nil, fmt.Errorf("teams: registrar is required")
	}
	if opt.Rand == nil {
		return nil, fmt.Errorf("teams: rand source is required")
	}
	return &Provisioner{opt: opt}, nil
}

// Provision returns count registered teams. Existing CSV entries are used
// first; newly generated teams are appended to the store before registration.
// Registration failures for a team are treated as "already registered": the
// platform reports creation conflicts as plain errors, so provisioning
// proceeds with the locally assigned id rather than aborting the run.
func (p *Provisioner) Provision(ctx context.Context, count int) ([]Team, error) {
	existing, err := p.opt.Store.Load()
	if err != nil {
		return nil, err
	}

	var roster []Team
	if len(existing) >= count {
		logrus.Infof("reusing %d of %d persisted teams", count, len(existing))
		roster = existing[:count]
	} else {
		needed := count - len(existing)
		logrus.Infof("found %d persisted teams, generating %d more", len(existing), needed)
		fresh := NewRoster(p.opt.Rand, needed, len(existing), p.opt.AffiliationPool, p.opt.Password)
		if err := p.opt.Store.Append(fresh); err != nil {
			return nil, err
		}
		roster = append(append([]Team(nil), existing...), fresh...)
	}

	registered := make([]Team, 0, len(roster))
	for _, t := range roster {
		platformID, err := p.opt.Registrar.RegisterTeam(ctx, t)
		if err != nil {
			logrus.Warnf("could not create team %s (may already exist): %v", t.ID, err)
			platformID = t.ID
		}
		if err := p.opt.Registrar.RegisterUser(ctx, t, platformID); err != nil {
			logrus.Warnf("could not create user %s (may already exist): %v", t.Username, err)
		}
		t.PlatformID = platformID
		registered = append(registered, t)
	}
	logrus.Infof("provisioned %d teams", len(registered))
	return registered, nil
}
