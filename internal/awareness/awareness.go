// Package awareness packages account structure and reactivation
// candidates into text an LLM can reason over.
package awareness

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/reactivation"
	"github.com/radiusdt/budget-intel/internal/status"
	"github.com/radiusdt/budget-intel/internal/storage"
)

const maxListed = 5

// reactivationKeywords are matched case-insensitively as substrings.
var reactivationKeywords = []string{
	"reactivat",
	"inactive",
	"paused",
	"archived",
	"turn back on",
	"turn on again",
	"restart",
	"resume",
	"bring back",
	"revive",
	"old campaign",
	"past campaign",
	"previous campaign",
	"winners",
	"what worked",
}

const instructions = `IMPORTANT CONTEXT:
- Performance figures cover ACTIVE objects only unless inactive data was requested.
- Paused and archived objects are not spending; do not recommend budget changes for them as if they were live.
- When the user asks about reactivation, recommend candidates from the list above, cite their score and reason, and suggest restarting at a conservative budget.
- If no candidates are listed, say so instead of inventing past winners.`

// LevelCounts tallies objects of one level by effective status.
type LevelCounts struct {
	Active   int `json:"active"`
	Paused   int `json:"paused"`
	Archived int `json:"archived"`
	Other    int `json:"other"`
	Total    int `json:"total"`
}

func (c *LevelCounts) add(effectiveStatus string) {
	switch models.Status(strings.ToUpper(strings.TrimSpace(effectiveStatus))) {
	case models.StatusActive:
		c.Active++
	case models.StatusPaused:
		c.Paused++
	case models.StatusArchived:
		c.Archived++
	default:
		c.Other++
	}
	c.Total++
}

type AccountStructure struct {
	Store     string      `json:"store"`
	Campaigns LevelCounts `json:"campaigns"`
	Adsets    LevelCounts `json:"adsets"`
	Ads       LevelCounts `json:"ads"`
}

// Bundle is everything the advisor needs about a store.
type Bundle struct {
	Store                  string               `json:"store"`
	AccountStructure       AccountStructure     `json:"accountStructure"`
	ReactivationCandidates *reactivation.Result `json:"reactivationCandidates"`
	Prompt                 string               `json:"prompt"`
}

type Packager struct {
	store  storage.MetricStore
	scorer *reactivation.Scorer
	logger *zap.Logger
}

func NewPackager(store storage.MetricStore, scorer *reactivation.Scorer, logger *zap.Logger) *Packager {
	return &Packager{store: store, scorer: scorer, logger: logger.Named("awareness")}
}

// AccountStructure counts meta_objects per level. The store name matches
// case-insensitively.
func (p *Packager) AccountStructure(ctx context.Context, store string) (AccountStructure, error) {
	out := AccountStructure{Store: store}
	objects, err := p.store.ListObjects(ctx, storage.ObjectQuery{
		Store:                store,
		CaseInsensitiveStore: true,
		Status:               status.Any(),
	})
	if err != nil {
		return out, fmt.Errorf("failed to load account structure: %w", err)
	}
	for _, o := range objects {
		switch o.ObjectType {
		case models.LevelCampaign:
			out.Campaigns.add(o.EffectiveStatus)
		case models.LevelAdset:
			out.Adsets.add(o.EffectiveStatus)
		case models.LevelAd:
			out.Ads.add(o.EffectiveStatus)
		}
	}
	return out, nil
}

// Build assembles the bundle. Reactivation candidates are loaded only when
// requested; a failure there is logged and leaves them out.
func (p *Packager) Build(ctx context.Context, store string, withReactivation bool) (*Bundle, error) {
	structure, err := p.AccountStructure(ctx, store)
	if err != nil {
		return nil, err
	}
	b := &Bundle{Store: store, AccountStructure: structure}

	if withReactivation && p.scorer != nil {
		res, err := p.scorer.GetCandidates(ctx, store, reactivation.Params{})
		if err != nil {
			p.logger.Warn("reactivation candidates unavailable", zap.String("store", store), zap.Error(err))
		} else {
			b.ReactivationCandidates = res
		}
	}
	b.Prompt = BuildAIPromptSection(b.AccountStructure, b.ReactivationCandidates)
	return b, nil
}

// FormatAccountStructureForAI renders the counts as four lines.
func FormatAccountStructureForAI(s AccountStructure) string {
	line := func(label string, c LevelCounts) string {
		return fmt.Sprintf("- %s: %d active, %d paused, %d archived, %d other (%d total)",
			label, c.Active, c.Paused, c.Archived, c.Other, c.Total)
	}
	return strings.Join([]string{
		fmt.Sprintf("ACCOUNT STRUCTURE (%s):", s.Store),
		line("Campaigns", s.Campaigns),
		line("Ad sets", s.Adsets),
		line("Ads", s.Ads),
	}, "\n")
}

// FormatReactivationForAI lists up to five candidates per level.
func FormatReactivationForAI(res *reactivation.Result) string {
	if res == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "REACTIVATION CANDIDATES (last %d days):", res.LookbackDays)
	if res.Summary.Total == 0 {
		sb.WriteString("\nNo inactive objects met the ROAS and conversion thresholds.")
		return sb.String()
	}

	section := func(label string, list []reactivation.Candidate) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s:", label)
		for i, c := range list {
			if i == maxListed {
				break
			}
			name := c.ObjectName
			if name == "" {
				name = c.ObjectID
			}
			fmt.Fprintf(&sb, "\n- %s (%s): %s, score %.1f", name, c.EffectiveStatus, c.Reason, c.Score)
		}
	}
	section("Campaigns", res.Campaigns)
	section("Ad sets", res.Adsets)
	section("Ads", res.Ads)
	return sb.String()
}

// BuildAIPromptSection joins the structure, the candidates and the fixed
// instruction block.
func BuildAIPromptSection(s AccountStructure, res *reactivation.Result) string {
	parts := []string{FormatAccountStructureForAI(s)}
	if r := FormatReactivationForAI(res); r != "" {
		parts = append(parts, r)
	}
	parts = append(parts, instructions)
	return strings.Join(parts, "\n\n")
}

// IsReactivationQuestion reports whether text asks about bringing inactive
// objects back.
func IsReactivationQuestion(text string) bool {
	t := strings.ToLower(text)
	for _, k := range reactivationKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}
