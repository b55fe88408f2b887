package platform

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/judgefire/judgefire/internal/contest"
	"github.com/judgefire/judgefire/internal/simulation"
	"github.com/judgefire/judgefire/internal/teams"
)

// ContestAuthority binds a Client to one contest id, satisfying the
// synchronizer's Authority interface.
type ContestAuthority struct {
	Client    *Client
	ContestID string
}

func (a *ContestAuthority) SetStartTime(ctx context.Context, start time.Time, force bool) error {
	return a.Client.SetStartTime(ctx, a.ContestID, start, force)
}

func (a *ContestAuthority) Contest(ctx context.Context) (contest.Status, error) {
	return a.Client.Contest(ctx, a.ContestID)
}

// SubmissionSink dispatches simulation events as platform submissions,
// authenticating as the submitting team. It satisfies the scheduler's Sink
// interface.
type SubmissionSink struct {
	Client       *Client
	ContestID    string
	TeamPassword string
	// Tracer, when set, records a span per dispatched submission.
	Tracer trace.Tracer
}

func (s *SubmissionSink) Submit(ctx context.Context, ev simulation.SubmissionEvent) error {
	if s.Tracer != nil {
		var span trace.Span
		ctx, span = s.Tracer.Start(ctx, "submission.dispatch", trace.WithAttributes(
			attribute.String("contest.team", ev.TeamID),
			attribute.String("contest.problem", ev.ProblemID),
			attribute.String("contest.language", ev.LanguageID),
			attribute.Int64("contest.seq", int64(ev.Seq)),
		))
		defer span.End()
		err := s.Client.Submit(ctx, s.ContestID, ev.TeamID, s.TeamPassword, ev.ProblemID, ev.LanguageID, ev.ArtifactPath)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
	return s.Client.Submit(ctx, s.ContestID, ev.TeamID, s.TeamPassword, ev.ProblemID, ev.LanguageID, ev.ArtifactPath)
}

// TeamRegistrar registers generated teams and users with the platform,
// satisfying the provisioner's Registrar interface.
type TeamRegistrar struct {
	Client *Client
}

func (r *TeamRegistrar) RegisterTeam(ctx context.Context, t teams.Team) (string, error) {
	return r.Client.CreateTeam(ctx, TeamPayload{
		ID:          t.ID,
		ICPCID:      t.ICPCID,
		Label:       t.Label,
		Name:        t.Name,
		DisplayName: t.DisplayName,
		Affiliation: t.Affiliation,
		GroupID:     t.GroupID,
	})
}

func (r *TeamRegistrar) RegisterUser(ctx context.Context, t teams.Team, platformTeamID string) error {
	return r.Client.CreateUser(ctx, UserPayload{
		Username: t.Username,
		Name:     t.UserFullName,
		Password: t.Password,
		TeamID:   platformTeamID,
		Roles:    []string{"team"},
	})
}
