// Package agent implements C7: translating a user utterance into zero
// or more tool invocations and a natural-language reply, within a
// bounded iteration budget, per spec.md §4.7. Grounded on
// original_source/app/services/agent_service.py's chat/detect_intent/
// generate_response flow, generalized from a singleton service to an
// injectable Orchestrator.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lingxi-album/backend/internal/agent/extract"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/search"
)

// Reasoner is the ReAct tool-calling engine C7 delegates to when wired,
// per spec.md §4.7 step 2.
type Reasoner interface {
	Run(ctx context.Context, query string, history []model.HistoryEntry) (string, error)
}

// MonitorScheduler schedules the background point-cloud session monitor
// (C8) that watches sessionID for pointCloudID's completion.
type MonitorScheduler func(sessionID, pointCloudID string)

// ChatResult is one Chat call's reply envelope.
type ChatResult struct {
	Answer         string
	Images         []extract.ImageRef
	Recommendation *extract.Recommendation
	PointCloudID   string
}

// Orchestrator implements spec.md §4.7's per-request scheduling model.
type Orchestrator struct {
	sessions        *SessionStore
	reasoner        Reasoner
	searchEngine    *search.Engine
	scheduleMonitor MonitorScheduler
	log             *slog.Logger
}

// New creates an Orchestrator. reasoner may be nil, in which case every
// Chat call uses the fallback rule-based intent resolver.
// scheduleMonitor may be nil, in which case point-cloud ids are still
// reported in ChatResult but no background monitor is scheduled.
func New(sessions *SessionStore, reasoner Reasoner, searchEngine *search.Engine, scheduleMonitor MonitorScheduler, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		sessions:        sessions,
		reasoner:        reasoner,
		searchEngine:    searchEngine,
		scheduleMonitor: scheduleMonitor,
		log:             logger,
	}
}

// Chat executes one conversational turn, per spec.md §4.7. It never
// returns an error: reasoning-engine failures are caught and surfaced as
// a human-readable apology in the reply.
func (o *Orchestrator) Chat(ctx context.Context, query, conversationID string) ChatResult {
	sess := o.sessions.Resolve(conversationID)
	o.sessions.WithLock(func() { sess.LastImages = nil })

	reply := o.reply(ctx, query, sess)

	o.sessions.WithLock(func() {
		now := time.Now()
		sess.Append(model.HistoryEntry{Role: model.RoleUser, Content: query, Timestamp: now})
		sess.Append(model.HistoryEntry{Role: model.RoleAssistant, Content: reply, Timestamp: now})
	})

	return o.extractArtifacts(reply, query, sess)
}

func (o *Orchestrator) reply(ctx context.Context, query string, sess *model.Session) string {
	if o.reasoner == nil {
		return fallbackReply(classifyIntent(query))
	}

	text, err := o.reasoner.Run(ctx, query, sess.History)
	if err != nil {
		o.log.Error("agent: reasoning engine failed", "conversation_id", sess.ID, "error", err)
		return fmt.Sprintf("Sorry, the smart album assistant can't respond right now (%v).", err)
	}
	return text
}

func (o *Orchestrator) extractArtifacts(reply, query string, sess *model.Session) ChatResult {
	images := extract.Images(reply, extract.DefaultImagePathPrefix)
	imageIDs := make(map[string]struct{}, len(images))
	contextIDs := make([]string, 0, len(images))
	for _, img := range images {
		imageIDs[img.ID] = struct{}{}
		contextIDs = append(contextIDs, img.ID)
	}

	result := ChatResult{Answer: reply, Images: images}

	if extract.IsPointCloudRequest(query) {
		if pcID, ok := extract.PointCloudID(reply, imageIDs); ok {
			result.PointCloudID = pcID
			if o.scheduleMonitor != nil {
				o.scheduleMonitor(sess.ID, pcID)
			}
		}
		return result
	}

	rec := extract.ExtractRecommendation(reply, query, false, contextIDs)
	if rec.RecommendedImageID != "" {
		result.Recommendation = &rec
	}
	return result
}

// SearchIntent executes the "search" branch of the fallback intent
// resolver, reachable only via the text path of a typed API, per
// spec.md §4.7 step 3.
func (o *Orchestrator) SearchIntent(ctx context.Context, query string, topK int) (string, []search.Result, error) {
	results, err := o.searchEngine.SearchByText(ctx, query, topK, 0, nil)
	if err != nil {
		return "", nil, err
	}
	return composeSearchReply(query, len(results)), results, nil
}

func composeSearchReply(query string, total int) string {
	switch {
	case total == 0:
		return fmt.Sprintf("Sorry, no photos matched %q. Try a different description.", query)
	case total == 1:
		return fmt.Sprintf("Found 1 photo matching %q.", query)
	default:
		return fmt.Sprintf("Found %d photos matching %q.", total, query)
	}
}

type intent string

const (
	intentDelete  intent = "delete"
	intentUpload  intent = "upload"
	intentAnalyze intent = "analyze"
	intentChat    intent = "chat"
)

var deleteKeywords = []string{"删除", "删掉", "delete", "remove"}
var uploadKeywords = []string{"上传", "添加", "upload", "add"}
var analyzeKeywords = []string{"分析", "识别", "这是什么", "analyze"}

// classifyIntent implements spec.md §4.7 step 3's fallback rule-based
// intent resolver.
func classifyIntent(query string) intent {
	lower := strings.ToLower(query)
	if containsAny(lower, deleteKeywords) {
		return intentDelete
	}
	if containsAny(lower, uploadKeywords) {
		return intentUpload
	}
	if containsAny(lower, analyzeKeywords) {
		return intentAnalyze
	}
	return intentChat
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func fallbackReply(i intent) string {
	switch i {
	case intentDelete:
		return "Delete request noted."
	case intentUpload:
		return "Upload completed."
	case intentAnalyze:
		return "Image analysis isn't available without the reasoning engine configured."
	default:
		return "I'm your smart album assistant. I can help you search your photos and manage your album."
	}
}
