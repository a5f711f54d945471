package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/jaalnet/jaal/pkg/config"
	"github.com/jaalnet/jaal/pkg/engine"
	"github.com/jaalnet/jaal/pkg/httputil"
	"github.com/jaalnet/jaal/pkg/patterns"
	"github.com/jaalnet/jaal/pkg/store"
)

const Version = "0.1.0"

// Gateway wires the engagement pipeline to its operational surroundings.
// The archiver and notifier are optional and gracefully degrade if not
// configured.
type Gateway struct {
	cfg        *config.Config
	store      engine.SessionStore
	engine     *engine.Engine
	archiver   *store.Archiver     // Optional: requires JAAL_POSTGRES_DSN
	notifier   *httputil.Notifier  // Optional: requires JAAL_CALLBACK_URL
	turnSem    *httputil.Semaphore // Caps simultaneously processed turns
	deliverSem *httputil.Semaphore // Caps concurrent archive/callback deliveries

	startedAt time.Time
}

// TurnResponse is the wire shape for one processed turn.
type TurnResponse struct {
	SessionID             string       `json:"sessionId"`
	Reply                 string       `json:"reply"`
	ScamDetected          bool         `json:"scamDetected"`
	Confidence            float64      `json:"confidence"`
	ScamType              string       `json:"scamType,omitempty"`
	Phase                 string       `json:"phase"`
	ShouldEnd             bool         `json:"shouldEnd"`
	TurnCount             int          `json:"turnCount"`
	EngagementSeconds     int          `json:"engagementSeconds"`
	ExtractedIntelligence Intelligence `json:"extractedIntelligence"`
	AgentNotes            string       `json:"agentNotes,omitempty"`
}

// Intelligence buckets the session's accumulated identifiers for consumers.
type Intelligence struct {
	PhoneNumbers       []string `json:"phoneNumbers"`
	UPIIDs             []string `json:"upiIds"`
	BankAccounts       []string `json:"bankAccounts"`
	PhishingLinks      []string `json:"phishingLinks"`
	Emails             []string `json:"emails"`
	ReferenceIDs       []string `json:"referenceIds"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// FinalReport is what the archiver stores and the callback receives when a
// session terminates.
type FinalReport struct {
	SessionID             string            `json:"sessionId"`
	ScamDetected          bool              `json:"scamDetected"`
	Confidence            float64           `json:"confidence"`
	ScamType              string            `json:"scamType,omitempty"`
	Phase                 string            `json:"phase"`
	EndReason             string            `json:"endReason,omitempty"`
	TurnCount             int               `json:"turnCount"`
	EngagementSeconds     int               `json:"engagementSeconds"`
	UrgencyLevel          string            `json:"urgencyLevel,omitempty"`
	ExtractedIntelligence Intelligence      `json:"extractedIntelligence"`
	AgentNotes            string            `json:"agentNotes,omitempty"`
	Transcript            []TranscriptEntry `json:"transcript,omitempty"`
}

// TranscriptEntry is one message in the final report's transcript.
type TranscriptEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	Turn int       `json:"turn"`
	Time time.Time `json:"time"`
}

func NewGateway(cfg *config.Config) *Gateway {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	gw := &Gateway{
		cfg:        cfg,
		turnSem:    httputil.NewSemaphore(cfg.MaxConcurrentTurns),
		deliverSem: httputil.NewSemaphore(8),
		startedAt:  time.Now(),
	}

	// Session store: Redis when configured, in-memory otherwise.
	if cfg.StoreBackend == config.BackendRedis {
		rs, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("[STARTUP] FATAL: redis store unavailable: %v", err)
		}
		gw.store = rs
		log.Printf("✓ Session store: redis (%s, ttl %s)", cfg.RedisAddr, cfg.SessionTTL)
	} else {
		gw.store = engine.NewInMemoryStore(
			engine.WithMaxAge(cfg.SessionTTL),
			engine.WithCleanupInterval(cfg.CleanupInterval),
		)
		log.Printf("✓ Session store: memory (ttl %s, sweep %s)", cfg.SessionTTL, cfg.CleanupInterval)
	}

	// Optional template pack overlay.
	var overlay *engine.TemplatePack
	if cfg.TemplatePackPath != "" {
		pack, err := engine.LoadTemplatePack(cfg.TemplatePackPath)
		if err != nil {
			log.Printf("○ Template overlay disabled (load failed: %v)", err)
		} else {
			overlay = pack
			log.Printf("✓ Template overlay loaded (%s)", cfg.TemplatePackPath)
		}
	} else {
		log.Println("○ Template overlay not configured (using compiled-in pools)")
	}

	responder := engine.NewResponder(engine.ResponderConfig{
		HinglishDensity:   cfg.HinglishDensity,
		HinglishMinTokens: cfg.HinglishMinTokens,
		ReplyMemory:       cfg.ReplyMemory,
	}, overlay)
	gw.engine = engine.New(gw.store, engine.WithResponder(responder))
	log.Printf("✓ Decision pipeline ready (%d patterns, %d categories)",
		patterns.Get().TotalPatterns(), len(patterns.ScamCategories))

	// Optional archiver.
	if cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		arch, err := store.NewArchiver(ctx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			log.Printf("○ Archival disabled (postgres init failed: %v)", err)
		} else {
			gw.archiver = arch
			log.Println("✓ Archival enabled (postgres)")
		}
	} else {
		log.Println("○ Archival disabled (no postgres DSN)")
	}

	// Optional result callback.
	if cfg.CallbackURL != "" {
		gw.notifier = httputil.NewNotifier(cfg.CallbackURL, cfg.CallbackToken)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := gw.notifier.Ping(ctx); err != nil {
			log.Printf("✓ Result callback enabled (%s, not reachable yet: %v)", cfg.CallbackURL, err)
		} else {
			log.Printf("✓ Result callback enabled (%s)", cfg.CallbackURL)
		}
		cancel()
	} else {
		log.Println("○ Result callback disabled (no URL)")
	}

	return gw
}

// authorized checks the bearer key on ingest endpoints. An unset key means
// open access (development mode).
func (gw *Gateway) authorized(c fiber.Ctx) bool {
	if gw.cfg.APIKey == "" {
		return true
	}
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") && strings.TrimPrefix(header, "Bearer ") == gw.cfg.APIKey {
		return true
	}
	return c.Get("X-API-Key") == gw.cfg.APIKey
}

// bucketIntelligence sorts a session's identifiers into the wire buckets.
func bucketIntelligence(sess *engine.Session) Intelligence {
	intel := Intelligence{
		PhoneNumbers:       []string{},
		UPIIDs:             []string{},
		BankAccounts:       []string{},
		PhishingLinks:      []string{},
		Emails:             []string{},
		ReferenceIDs:       []string{},
		SuspiciousKeywords: []string{},
	}
	if sess == nil {
		return intel
	}

	for idType, byValue := range sess.Identifiers {
		for value := range byValue {
			switch idType {
			case patterns.IDPhone:
				intel.PhoneNumbers = append(intel.PhoneNumbers, value)
			case patterns.IDUPI:
				intel.UPIIDs = append(intel.UPIIDs, value)
			case patterns.IDBankAccount:
				intel.BankAccounts = append(intel.BankAccounts, value)
			case patterns.IDURL:
				intel.PhishingLinks = append(intel.PhishingLinks, value)
			case patterns.IDEmail:
				intel.Emails = append(intel.Emails, value)
			case patterns.IDPersonName, patterns.IDOrganization:
				// Names go to the notes, not the actionable buckets.
			default:
				intel.ReferenceIDs = append(intel.ReferenceIDs, fmt.Sprintf("%s:%s", idType, value))
			}
		}
	}

	intel.SuspiciousKeywords = append(intel.SuspiciousKeywords, sess.RedFlags...)
	return intel
}

// agentNotes renders a one-line analyst summary of the session.
func agentNotes(sess *engine.Session) string {
	if sess == nil {
		return ""
	}

	var parts []string
	if sess.ScamType != "" {
		parts = append(parts, fmt.Sprintf("classified as %s", sess.ScamType))
	}
	if sess.UrgencyLevel != "" && sess.UrgencyLevel != engine.UrgencyNone {
		parts = append(parts, fmt.Sprintf("urgency %s", sess.UrgencyLevel))
	}
	if n := sess.IdentifierCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d identifiers extracted", n))
	}
	for _, byValue := range sess.Identifiers[patterns.IDPersonName] {
		parts = append(parts, fmt.Sprintf("caller named %q", byValue.Value))
		break
	}
	for _, byValue := range sess.Identifiers[patterns.IDOrganization] {
		parts = append(parts, fmt.Sprintf("claimed org %q", byValue.Value))
		break
	}
	if len(sess.RedFlags) > 0 {
		parts = append(parts, "red flags: "+strings.Join(sess.RedFlags, "; "))
	}
	return strings.Join(parts, ", ")
}

func (gw *Gateway) buildReport(sess *engine.Session) FinalReport {
	transcript := make([]TranscriptEntry, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		transcript = append(transcript, TranscriptEntry{
			Role: string(m.Role),
			Text: m.Text,
			Turn: m.Turn,
			Time: m.Time,
		})
	}

	return FinalReport{
		SessionID:             sess.ID,
		ScamDetected:          sess.Confidence >= 0.7,
		Confidence:            sess.Confidence,
		ScamType:              sess.ScamType,
		Phase:                 string(sess.Phase),
		EndReason:             sess.EndReason,
		TurnCount:             sess.TurnCount,
		EngagementSeconds:     sess.EngagementSeconds(),
		UrgencyLevel:          sess.UrgencyLevel,
		ExtractedIntelligence: bucketIntelligence(sess),
		AgentNotes:            agentNotes(sess),
		Transcript:            transcript,
	}
}

// finalize archives a terminated session and fires the result callback.
// Runs in its own goroutine over a detached session snapshot; failures are
// logged, never surfaced to the counterpart. The delivery semaphore bounds
// how many terminations are archived and posted at once.
func (gw *Gateway) finalize(sess *engine.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := gw.deliverSem.Acquire(ctx); err != nil {
		log.Printf("[FINALIZE] session %s: delivery backlog: %v", sess.ID, err)
		return
	}
	defer gw.deliverSem.Release()

	report := gw.buildReport(sess)

	if gw.archiver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := gw.archiver.Archive(ctx, sess); err != nil {
			log.Printf("[ARCHIVE] session %s: %v", sess.ID, err)
		}
		cancel()
	}

	if gw.notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := gw.notifier.Notify(ctx, report); err != nil {
			log.Printf("[CALLBACK] session %s: %v", sess.ID, err)
		}
		cancel()
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		cfg := config.NewDefaultConfig()
		if len(os.Args) > 2 {
			cfg.Port = os.Args[2]
		}
		cfg.MustValidate()
		runHTTPServer(cfg)
	case "score":
		if len(os.Args) < 3 {
			fmt.Println("Usage: jaal score <text>")
			os.Exit(1)
		}
		text := strings.Join(os.Args[2:], " ")
		runCLIScore(text)
	case "version":
		fmt.Printf("Jaal v%s\n", Version)
		fmt.Println("Scam Engagement Gateway")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Jaal v%s - Scam Engagement Gateway\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  jaal serve [port]   Start HTTP server (default: 8080)")
	fmt.Println("  jaal score <text>   Score a message offline and print the verdict")
	fmt.Println("  jaal version        Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  jaal serve 9090")
	fmt.Println("  jaal score \"Share your OTP now or account will be blocked\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  JAAL_API_KEY        Bearer key for the ingest endpoints")
	fmt.Println("  JAAL_REDIS_ADDR     Redis address for the shared session store")
	fmt.Println("  JAAL_POSTGRES_DSN   Postgres DSN for session archival")
	fmt.Println("  JAAL_CALLBACK_URL   Webhook receiving final session reports")
	fmt.Println("  JAAL_TEMPLATE_PACK  YAML overlay for the reply template pools")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(cfg *config.Config) {
	gw := NewGateway(cfg)

	app := fiber.New(fiber.Config{
		AppName: "Jaal Gateway",
	})

	// Health check
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": Version,
			"uptime":  time.Since(gw.startedAt).String(),
		})
	})

	// Operational statistics
	app.Get("/stats", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions":   gw.engine.Stats(),
			"turns":      gw.turnSem.Stats(),
			"deliveries": gw.deliverSem.Stats(),
		})
	})

	// One conversation turn. A missing sessionId starts a new session.
	// Pipeline errors never reach the counterpart: the gateway answers with
	// the global fallback reply and keeps the conversation alive.
	app.Post("/api/honeypot", func(c fiber.Ctx) error {
		if !gw.authorized(c) {
			return c.Status(401).JSON(fiber.Map{"error": "unauthorized"})
		}

		var req struct {
			SessionID string `json:"sessionId"`
			Message   string `json:"message"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Message == "" {
			return c.Status(400).JSON(fiber.Map{"error": "message field is required"})
		}

		if !gw.turnSem.TryAcquire() {
			return c.Status(429).JSON(fiber.Map{"error": "too many concurrent turns"})
		}
		defer gw.turnSem.Release()

		result, err := gw.engine.ProcessTurn(req.SessionID, req.Message)
		if err != nil {
			log.Printf("[TURN] session %q: %v", req.SessionID, err)
			return c.JSON(TurnResponse{
				SessionID:             req.SessionID,
				Reply:                 engine.GlobalFallbackReply,
				Phase:                 string(engine.PhaseInitial),
				ExtractedIntelligence: bucketIntelligence(nil),
			})
		}

		// Read the turn's detached snapshot, never the stored session: a
		// concurrent turn for the same session mutates the live maps.
		sess := result.Session

		resp := TurnResponse{
			SessionID:             result.SessionID,
			Reply:                 result.Reply,
			ScamDetected:          result.Confidence >= 0.7,
			Confidence:            result.Confidence,
			ScamType:              result.ScamType,
			Phase:                 string(result.Phase),
			ShouldEnd:             result.ShouldEnd,
			TurnCount:             result.TurnCount,
			EngagementSeconds:     result.EngagementSeconds,
			ExtractedIntelligence: bucketIntelligence(sess),
			AgentNotes:            agentNotes(sess),
		}

		if result.ShouldEnd && sess != nil {
			go gw.finalize(sess)
		}

		return c.JSON(resp)
	})

	// External termination: the operator (or upstream platform) hangs up.
	app.Post("/api/session/end", func(c fiber.Ctx) error {
		if !gw.authorized(c) {
			return c.Status(401).JSON(fiber.Map{"error": "unauthorized"})
		}

		var req struct {
			SessionID string `json:"sessionId"`
			Reason    string `json:"reason"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.SessionID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "sessionId field is required"})
		}

		sess, err := gw.engine.EndSession(req.SessionID, req.Reason)
		if err != nil {
			log.Printf("[END] session %s: %v", req.SessionID, err)
			return c.Status(500).JSON(fiber.Map{"error": "termination failed"})
		}
		if sess == nil {
			return c.Status(404).JSON(fiber.Map{"error": "session not found"})
		}

		go gw.finalize(sess)

		return c.JSON(gw.buildReport(sess))
	})

	log.Printf("Jaal gateway starting on :%s", cfg.Port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health            - Health check")
	log.Printf("  GET  /stats             - Store and turn statistics")
	log.Printf("  POST /api/honeypot      - Process one conversation turn")
	log.Printf("  POST /api/session/end   - Terminate a session externally")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

// ============================================================================
// CLI Mode
// ============================================================================

func runCLIScore(text string) {
	scorer := engine.NewScorer()
	extractor := engine.NewExtractor()

	verdict := scorer.Score(text, nil)
	ids := extractor.Scan(text)

	out := fiber.Map{
		"score":       verdict,
		"identifiers": ids,
		"redFlags":    engine.MatchRedFlags(text),
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}
