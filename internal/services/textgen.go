package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/momentumhq/momentum-backend/internal/bandit"
	"github.com/momentumhq/momentum-backend/internal/clients/openai"
	"github.com/momentumhq/momentum-backend/internal/logger"
	"github.com/momentumhq/momentum-backend/internal/types"
)

// SeasonNarrative is what the generator produces for a new season.
type SeasonNarrative struct {
	Objective       string           `json:"objective"`
	KeyResult       string           `json:"key_result"`
	Strategy        string           `json:"strategy"`
	TargetDimension bandit.Dimension `json:"target_dimension"`
	NarrativeText   string           `json:"narrative_text"`
}

// MissionContext carries the user-side signals a mission prompt can use.
type MissionContext struct {
	SeasonObjective string
	TargetDimension bandit.Dimension
	RecentHistory   []string
	// AvoidReasons are change reasons from missions the user rewrote;
	// the generator is told not to produce missions they already
	// rejected for these reasons.
	AvoidReasons []string
}

// MissionText is the rendered mission copy.
type MissionText struct {
	Action string `json:"action"`
	Hint   string `json:"hint"`
}

// TextGenService wraps the LLM. Both methods can fail (unreachable
// model, refusal, bad JSON); callers are required to substitute fixed
// defaults instead of surfacing those failures.
type TextGenService interface {
	RenderSeasonNarrative(ctx context.Context, metrics types.DimensionScores, recentActivity []string) (*SeasonNarrative, error)
	RenderMissionText(ctx context.Context, arm bandit.Arm, missionCtx MissionContext) (*MissionText, error)
}

type textGenService struct {
	log    *logger.Logger
	client openai.Client
}

// NewTextGenService accepts a nil client; every render then fails fast
// and callers fall back to defaults, which keeps the request path alive
// when the model is not configured.
func NewTextGenService(client openai.Client, log *logger.Logger) TextGenService {
	return &textGenService{
		log:    log.With("service", "TextGenService"),
		client: client,
	}
}

var seasonNarrativeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"objective":        map[string]any{"type": "string"},
		"key_result":       map[string]any{"type": "string"},
		"strategy":         map[string]any{"type": "string"},
		"target_dimension": map[string]any{"type": "string", "enum": []string{"productivity", "quality", "teamwork"}},
		"narrative_text":   map[string]any{"type": "string"},
	},
	"required":             []string{"objective", "key_result", "strategy", "target_dimension", "narrative_text"},
	"additionalProperties": false,
}

var missionTextSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action": map[string]any{"type": "string"},
		"hint":   map[string]any{"type": "string"},
	},
	"required":             []string{"action", "hint"},
	"additionalProperties": false,
}

func (t *textGenService) RenderSeasonNarrative(ctx context.Context, metrics types.DimensionScores, recentActivity []string) (*SeasonNarrative, error) {
	if t.client == nil {
		return nil, fmt.Errorf("text generation not configured")
	}

	system := "You are a performance coach writing a six-week objective for a whole workplace team. " +
		"Given aggregate scores (0-100) per competency dimension and recent activity, pick the dimension most worth improving and write a short, motivating objective, one measurable key result, and a strategy in two sentences."

	var sb strings.Builder
	fmt.Fprintf(&sb, "Aggregate scores: productivity=%.1f quality=%.1f teamwork=%.1f\n", metrics.Productivity, metrics.Quality, metrics.Teamwork)
	if len(recentActivity) > 0 {
		sb.WriteString("Recent team activity:\n")
		for _, line := range recentActivity {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}

	obj, err := t.client.GenerateJSON(ctx, system, sb.String(), "season_narrative", seasonNarrativeSchema)
	if err != nil {
		return nil, err
	}

	out := &SeasonNarrative{
		Objective:       strAt(obj, "objective"),
		KeyResult:       strAt(obj, "key_result"),
		Strategy:        strAt(obj, "strategy"),
		TargetDimension: bandit.Dimension(strAt(obj, "target_dimension")),
		NarrativeText:   strAt(obj, "narrative_text"),
	}
	if out.Objective == "" || !out.TargetDimension.Valid() {
		return nil, fmt.Errorf("season narrative incomplete: %v", obj)
	}
	return out, nil
}

func (t *textGenService) RenderMissionText(ctx context.Context, arm bandit.Arm, missionCtx MissionContext) (*MissionText, error) {
	if t.client == nil {
		return nil, fmt.Errorf("text generation not configured")
	}

	system := "You are a performance coach. Turn a coaching focus into one concrete two-week mission for a single worker: " +
		"an actionable instruction (one sentence) and a practical hint (one or two sentences). Plain language, no fluff."

	var sb strings.Builder
	fmt.Fprintf(&sb, "Coaching focus: %s\n%s\n", arm.Focus, arm.Description)
	fmt.Fprintf(&sb, "Team objective this season: %s (dimension: %s)\n", missionCtx.SeasonObjective, missionCtx.TargetDimension)
	if len(missionCtx.RecentHistory) > 0 {
		sb.WriteString("Recent activity for this worker:\n")
		for _, line := range missionCtx.RecentHistory {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}
	if len(missionCtx.AvoidReasons) > 0 {
		sb.WriteString("The worker rewrote earlier missions for these reasons; avoid missions they would reject again:\n")
		for _, reason := range missionCtx.AvoidReasons {
			fmt.Fprintf(&sb, "- %s\n", reason)
		}
	}

	obj, err := t.client.GenerateJSON(ctx, system, sb.String(), "mission_text", missionTextSchema)
	if err != nil {
		return nil, err
	}

	out := &MissionText{
		Action: strAt(obj, "action"),
		Hint:   strAt(obj, "hint"),
	}
	if out.Action == "" {
		return nil, fmt.Errorf("mission text incomplete: %v", obj)
	}
	return out, nil
}

func strAt(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
