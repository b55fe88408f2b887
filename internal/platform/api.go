package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/judgefire/judgefire/internal/contest"
)

// Problem is a contest problem as reported by the platform.
type Problem struct {
	ID    string
	Label string
	Name  string
}

// Submission is one submission row from the platform.
type Submission struct {
	ID          string
	TeamID      string
	ProblemID   string
	LanguageID  string
	ContestTime string
	Judgements  []string
}

// Judgement is a judging verdict for a submission.
type Judgement struct {
	ID      string
	Verdict string
}

// TeamPayload is the creation payload for a team.
type TeamPayload struct {
	ID          string `json:"id"`
	ICPCID      string `json:"icpc_id"`
	Label       string `json:"label"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Affiliation string `json:"affiliation"`
	GroupID     string `json:"group_id"`
}

// UserPayload is the creation payload for a team's user account.
type UserPayload struct {
	Username string
	Name     string
	Password string
	TeamID   string
	Roles    []string
}

// SetStartTime patches the contest start on the platform. force overrides an
// already scheduled contest.
func (c *Client) SetStartTime(ctx context.Context, cid string, start time.Time, force bool) error {
	form := url.Values{}
	form.Set("id", cid)
	form.Set("start_time", start.Format(time.RFC3339))
	// The platform expects the flag as a string literal.
	form.Set("force", fmt.Sprintf("%t", force))

	_, err := c.do(ctx, requestSpec{
		method:      http.MethodPatch,
		endpoint:    "contests/" + cid,
		contentType: "application/x-www-form-urlencoded",
		newBody: func() (io.Reader, error) {
			return strings.NewReader(form.Encode()), nil
		},
	})
	if err != nil {
		return fmt.Errorf("patch contest %s: %w", cid, err)
	}
	return nil
}

// Contest fetches the current contest snapshot, including its window.
func (c *Client) Contest(ctx context.Context, cid string) (contest.Status, error) {
	body, err := c.do(ctx, requestSpec{method: http.MethodGet, endpoint: "contests/" + cid})
	if err != nil {
		return contest.Status{}, fmt.Errorf("get contest %s: %w", cid, err)
	}

	status := contest.Status{
		ID:    gjson.GetBytes(body, "id").String(),
		Name:  gjson.GetBytes(body, "name").String(),
		State: contest.ContestState(gjson.GetBytes(body, "state").String()),
	}

	if status.Window.Start, err = parseAPITime(gjson.GetBytes(body, "start_time").String()); err != nil {
		return contest.Status{}, fmt.Errorf("contest %s start_time: %w", cid, err)
	}
	if status.Window.End, err = parseAPITime(gjson.GetBytes(body, "end_time").String()); err != nil {
		return contest.Status{}, fmt.Errorf("contest %s end_time: %w", cid, err)
	}
	if raw := gjson.GetBytes(body, "freeze_time").String(); raw != "" {
		freeze, err := parseAPITime(raw)
		if err != nil {
			return contest.Status{}, fmt.Errorf("contest %s freeze_time: %w", cid, err)
		}
		status.Window.Freeze = &freeze
	}
	return status, nil
}

// Problems fetches all problems attached to the contest.
func (c *Client) Problems(ctx context.Context, cid string) ([]Problem, error) {
	body, err := c.do(ctx, requestSpec{method: http.MethodGet, endpoint: "contests/" + cid + "/problems"})
	if err != nil {
		return nil, fmt.Errorf("get problems: %w", err)
	}
	var problems []Problem
	gjson.ParseBytes(body).ForEach(func(_, p gjson.Result) bool {
		problems = append(problems, Problem{
			ID:    p.Get("id").String(),
			Label: p.Get("label").String(),
			Name:  p.Get("name").String(),
		})
		return true
	})
	return problems, nil
}

// ScoreboardRaw fetches the contest scoreboard as raw JSON.
func (c *Client) ScoreboardRaw(ctx context.Context, cid string) ([]byte, error) {
	body, err := c.do(ctx, requestSpec{method: http.MethodGet, endpoint: "contests/" + cid + "/scoreboard"})
	if err != nil {
		return nil, fmt.Errorf("get scoreboard: %w", err)
	}
	return body, nil
}

// ScoreboardTeamIDs returns the ids of teams already attached to the contest,
// in scoreboard row order.
func (c *Client) ScoreboardTeamIDs(ctx context.Context, cid string) ([]string, error) {
	body, err := c.ScoreboardRaw(ctx, cid)
	if err != nil {
		return nil, err
	}
	var ids []string
	gjson.GetBytes(body, "rows").ForEach(func(_, row gjson.Result) bool {
		if id := row.Get("team_id").String(); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	return ids, nil
}

// Submissions fetches all submissions for the contest.
func (c *Client) Submissions(ctx context.Context, cid string) ([]Submission, error) {
	body, err := c.do(ctx, requestSpec{method: http.MethodGet, endpoint: "contests/" + cid + "/submissions"})
	if err != nil {
		return nil, fmt.Errorf("get submissions: %w", err)
	}
	var subs []Submission
	gjson.ParseBytes(body).ForEach(func(_, s gjson.Result) bool {
		sub := Submission{
			ID:          s.Get("id").String(),
			TeamID:      s.Get("team_id").String(),
			ProblemID:   s.Get("problem_id").String(),
			LanguageID:  s.Get("language_id").String(),
			ContestTime: s.Get("contest_time").String(),
		}
		s.Get("judgements").ForEach(func(_, j gjson.Result) bool {
			sub.Judgements = append(sub.Judgements, j.String())
			return true
		})
		subs = append(subs, sub)
		return true
	})
	return subs, nil
}

// Judgements fetches all judging verdicts for the contest.
func (c *Client) Judgements(ctx context.Context, cid string) ([]Judgement, error) {
	body, err := c.do(ctx, requestSpec{method: http.MethodGet, endpoint: "contests/" + cid + "/judgements"})
	if err != nil {
		return nil, fmt.Errorf("get judgements: %w", err)
	}
	var judgements []Judgement
	gjson.ParseBytes(body).ForEach(func(_, j gjson.Result) bool {
		judgements = append(judgements, Judgement{
			ID:      j.Get("id").String(),
			Verdict: j.Get("verdict").String(),
		})
		return true
	})
	return judgements, nil
}

// CreateTeam registers a new team and returns the platform-assigned id.
func (c *Client) CreateTeam(ctx context.Context, team TeamPayload) (string, error) {
	payload, err := json.Marshal(team)
	if err != nil {
		return "", err
	}
	body, err := c.do(ctx, requestSpec{
		method:      http.MethodPost,
		endpoint:    "teams",
		contentType: "application/json",
		newBody: func() (io.Reader, error) {
			return bytes.NewReader(payload), nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("create team %s: %w", team.ID, err)
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("create team %s: response carries no id", team.ID)
	}
	return id, nil
}

// CreateUser registers a user account for a team. The platform expects a
// multipart form with repeated role fields.
func (c *Client) CreateUser(ctx context.Context, user UserPayload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"username", user.Username},
		{"name", user.Name},
		{"password", user.Password},
		{"team_id", user.TeamID},
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}
	for _, role := range user.Roles {
		if err := w.WriteField("roles[]", role); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	payload := buf.Bytes()

	_, err := c.do(ctx, requestSpec{
		method:      http.MethodPost,
		endpoint:    "users",
		contentType: w.FormDataContentType(),
		newBody: func() (io.Reader, error) {
			return bytes.NewReader(payload), nil
		},
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return nil
}

// AddTeamToContest attaches an existing team to the contest.
func (c *Client) AddTeamToContest(ctx context.Context, cid, teamID string) error {
	payload, err := json.Marshal([]string{teamID})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, requestSpec{
		method:      http.MethodPost,
		endpoint:    "contests/" + cid + "/teams",
		contentType: "application/json",
		newBody: func() (io.Reader, error) {
			return bytes.NewReader(payload), nil
		},
	})
	if err != nil {
		return fmt.Errorf("attach team %s to contest %s: %w", teamID, cid, err)
	}
	return nil
}

func parseAPITime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	return time.Parse(time.RFC3339, value)
}
