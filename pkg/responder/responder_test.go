package responder

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type stubResolver struct {
	tenant *models.TenantConfig
	err    error
	calls  int
}

func (s *stubResolver) Resolve(_ context.Context, _ *models.InboundMessage) (*models.TenantConfig, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.tenant, nil
}

type sendCall struct {
	kind       string
	credential string
	to         string
	payload    string
}

type stubDelivery struct {
	calls []sendCall
	err   error
}

func (s *stubDelivery) SendText(_ context.Context, credential, to, body string) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, sendCall{kind: "text", credential: credential, to: to, payload: body})
	return nil
}

func (s *stubDelivery) SendImage(_ context.Context, credential, to, imageURL string) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, sendCall{kind: "image", credential: credential, to: to, payload: imageURL})
	return nil
}

type stubHistory struct {
	records     []models.HistoryRecord
	recent      []models.HistoryRecord
	createErr   error
	recentErr   error
	recentCalls int
	lastLimit   int
	lastPhone   string
}

func (s *stubHistory) Create(_ context.Context, record *models.HistoryRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *stubHistory) ListRecent(_ context.Context, _, phone string, limit int) ([]models.HistoryRecord, error) {
	s.recentCalls++
	s.lastPhone = phone
	s.lastLimit = limit
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	return s.recent, nil
}

type stubLeads struct {
	leads []models.SalesLead
	err   error
}

func (s *stubLeads) Create(_ context.Context, lead *models.SalesLead) error {
	if s.err != nil {
		return s.err
	}
	s.leads = append(s.leads, *lead)
	return nil
}

type stubGenerator struct {
	reply        string
	err          error
	calls        int
	lastMessage  string
	lastTemplate string
	lastModel    string
	lastHistory  []models.HistoryRecord
}

func (s *stubGenerator) Generate(_ context.Context, message string, history []models.HistoryRecord, promptTemplate, modelName string) (string, error) {
	s.calls++
	s.lastMessage = message
	s.lastHistory = history
	s.lastTemplate = promptTemplate
	s.lastModel = modelName
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubTemplates struct {
	entries []models.TemplateEntry
	err     error
	calls   int
}

func (s *stubTemplates) ListByConfig(_ context.Context, _, _ string) ([]models.TemplateEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type stubKnowledge struct {
	entries []models.KnowledgeEntry
	err     error
	calls   int
}

func (s *stubKnowledge) ListByBusiness(_ context.Context, _ string) ([]models.KnowledgeEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

// fakeTx embeds database.Tx so only the methods the responder touches need
// implementations.
type fakeTx struct {
	database.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) IsOpen() bool {
	return !t.committed && !t.rolledBack
}

type fakeDB struct {
	txs []*fakeTx
	err error
}

func (db *fakeDB) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	if db.err != nil {
		return ctx, nil, db.err
	}
	tx := &fakeTx{}
	db.txs = append(db.txs, tx)
	return ctx, tx, nil
}

type pipelineFixture struct {
	responder *Responder
	resolver  *stubResolver
	delivery  *stubDelivery
	history   *stubHistory
	leads     *stubLeads
	generator *stubGenerator
	templates *stubTemplates
	knowledge *stubKnowledge
	db        *fakeDB
}

func newPipelineFixture() *pipelineFixture {
	logger := testLogger()
	f := &pipelineFixture{
		resolver: &stubResolver{tenant: &models.TenantConfig{
			ID:                 "chan-1",
			BusinessID:         "biz-1",
			ConfigID:           "cfg-1",
			ServiceNumber:      "15550100",
			Role:               "sales",
			ModelName:          "gpt-test",
			DeliveryCredential: "chan-token",
			Enabled:            true,
		}},
		delivery:  &stubDelivery{},
		history:   &stubHistory{},
		leads:     &stubLeads{},
		generator: &stubGenerator{reply: "generated reply"},
		templates: &stubTemplates{},
		knowledge: &stubKnowledge{},
		db:        &fakeDB{},
	}

	registry := NewRegistry(
		NewGenerativeHandler(f.generator, f.history, 5, logger),
		NewTemplateHandler(f.templates, logger),
		NewKnowledgeHandler(f.knowledge, logger),
	)
	f.responder = NewResponder(f.db, f.resolver, registry, f.delivery, f.history, f.leads, nil, nil, logger)
	return f
}

func inbound(body string) *models.InboundMessage {
	return &models.InboundMessage{
		FromNumber: "+15550123",
		ToNumber:   "15550100",
		Body:       body,
		Provider:   "wassenger",
		MessageID:  "m-1",
	}
}

func TestResponder_Respond(t *testing.T) {
	ctx := context.Background()

	t.Run("should answer with a template when its trigger matches", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "price", Body: "Our price list: basic $10, premium $25."},
		}

		outcome, err := f.responder.Respond(ctx, inbound("price"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeTemplateSent, outcome.Kind)
		assert.Equal(t, "Our price list: basic $10, premium $25.", outcome.Body)

		require.Len(t, f.delivery.calls, 1)
		assert.Equal(t, sendCall{kind: "text", credential: "chan-token", to: "+15550123", payload: "Our price list: basic $10, premium $25."}, f.delivery.calls[0])

		require.Len(t, f.history.records, 1)
		record := f.history.records[0]
		assert.Equal(t, "biz-1", record.BusinessID)
		assert.Equal(t, "cfg-1", record.ConfigID)
		assert.Equal(t, "15550123", record.Phone)
		assert.Equal(t, models.StageTemplate, record.Stage)
		assert.Equal(t, "price", record.Message)

		assert.Equal(t, 0, f.generator.calls)
		assert.Empty(t, f.leads.leads)
		require.Len(t, f.db.txs, 1)
		assert.True(t, f.db.txs[0].committed)
	})

	t.Run("should answer with a knowledge script when no template matches", func(t *testing.T) {
		f := newPipelineFixture()
		f.knowledge.entries = []models.KnowledgeEntry{
			{
				ID:            "k-1",
				Title:         "refund",
				DefaultScript: "We refund within 7 days.",
			},
		}

		outcome, err := f.responder.Respond(ctx, inbound("what is your refund policy"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeKnowledgeSent, outcome.Kind)
		assert.Equal(t, "We refund within 7 days.", outcome.Body)

		require.Len(t, f.delivery.calls, 1)
		assert.Equal(t, "We refund within 7 days.", f.delivery.calls[0].payload)

		require.Len(t, f.history.records, 1)
		assert.Equal(t, models.StageKnowledge, f.history.records[0].Stage)
		assert.Equal(t, 0, f.generator.calls)
	})

	t.Run("should fall back to the generative stage and create a lead on booking intent", func(t *testing.T) {
		f := newPipelineFixture()
		f.generator.reply = "Sure, let's schedule a booking!"

		outcome, err := f.responder.Respond(ctx, inbound("hello"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeGeneratedSent, outcome.Kind)
		assert.Equal(t, "Sure, let's schedule a booking!", outcome.Body)

		require.Len(t, f.delivery.calls, 1)
		assert.Equal(t, "Sure, let's schedule a booking!", f.delivery.calls[0].payload)

		require.Len(t, f.history.records, 1)
		assert.Equal(t, models.StageFallback, f.history.records[0].Stage)

		require.Len(t, f.leads.leads, 1)
		lead := f.leads.leads[0]
		assert.Equal(t, "biz-1", lead.BusinessID)
		assert.Equal(t, "cfg-1", lead.ConfigID)
		assert.Equal(t, "15550123", lead.Phone)

		require.Len(t, f.db.txs, 1)
		assert.True(t, f.db.txs[0].committed)
	})

	t.Run("should not create a lead when the generated reply has no booking keyword", func(t *testing.T) {
		f := newPipelineFixture()
		f.generator.reply = "We are open 9 to 5 on weekdays."

		outcome, err := f.responder.Respond(ctx, inbound("hello"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeGeneratedSent, outcome.Kind)
		assert.Empty(t, f.leads.leads)
	})

	t.Run("should ignore group messages before any tenant lookup", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "price", Body: "would match"},
		}

		msg := inbound("price")
		msg.IsGroup = true

		outcome, err := f.responder.Respond(ctx, msg)

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeIgnored, outcome.Kind)
		assert.Equal(t, models.IgnoredReasonGroup, outcome.Reason)

		assert.Equal(t, 0, f.resolver.calls)
		assert.Equal(t, 0, f.templates.calls)
		assert.Equal(t, 0, f.generator.calls)
		assert.Empty(t, f.delivery.calls)
		assert.Empty(t, f.history.records)
		assert.Empty(t, f.db.txs)
	})

	t.Run("should propagate resolution failure with no side effects", func(t *testing.T) {
		f := newPipelineFixture()
		f.resolver.err = httperror.NewHTTPErrorf(http.StatusNotFound, "no channel configured for number %s", "15550100")

		_, err := f.responder.Respond(ctx, inbound("hello"))

		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusNotFound, httperror.ToHTTPError(err).Code)

		assert.Empty(t, f.delivery.calls)
		assert.Empty(t, f.history.records)
		assert.Equal(t, 0, f.generator.calls)
	})

	t.Run("should send the image before the text when a template has one", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "menu", Body: "Here is our menu.", ImageURL: "https://cdn.example.com/menu.jpg"},
		}

		outcome, err := f.responder.Respond(ctx, inbound("menu please"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeTemplateSent, outcome.Kind)
		assert.Equal(t, "https://cdn.example.com/menu.jpg", outcome.ImageURL)

		require.Len(t, f.delivery.calls, 2)
		assert.Equal(t, "image", f.delivery.calls[0].kind)
		assert.Equal(t, "https://cdn.example.com/menu.jpg", f.delivery.calls[0].payload)
		assert.Equal(t, "text", f.delivery.calls[1].kind)
		assert.Equal(t, "Here is our menu.", f.delivery.calls[1].payload)
	})

	t.Run("should prefer templates over knowledge when both would match", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "refund", Body: "template refund answer"},
		}
		f.knowledge.entries = []models.KnowledgeEntry{
			{ID: "k-1", Title: "refund", DefaultScript: "knowledge refund answer"},
		}

		outcome, err := f.responder.Respond(ctx, inbound("refund please"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeTemplateSent, outcome.Kind)
		assert.Equal(t, "template refund answer", outcome.Body)
		assert.Equal(t, 0, f.knowledge.calls, "knowledge stage must not execute once a template matched")
	})

	t.Run("should answer with the row body when its category names the template stage", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "price", Body: "price list", Category: models.StageTemplate},
		}

		outcome, err := f.responder.Respond(ctx, inbound("price"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeTemplateSent, outcome.Kind)
		assert.Equal(t, "price list", outcome.Body)
		assert.Equal(t, 0, f.generator.calls)
	})

	t.Run("should route a trigger with a knowledge category through the knowledge handler", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "refund", Body: "unused routing row", Category: models.StageKnowledge},
		}
		f.knowledge.entries = []models.KnowledgeEntry{
			{ID: "k-1", Title: "refund", DefaultScript: "We refund within 7 days."},
		}

		outcome, err := f.responder.Respond(ctx, inbound("refund please"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeKnowledgeSent, outcome.Kind)
		assert.Equal(t, "We refund within 7 days.", outcome.Body)

		require.Len(t, f.history.records, 1)
		assert.Equal(t, models.StageKnowledge, f.history.records[0].Stage)
		assert.Equal(t, 0, f.generator.calls)
	})

	t.Run("should route unknown categories to the default handler", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "vip", Body: "unused routing row", Category: "DefaultTool"},
		}
		f.generator.reply = "Sure, let's schedule a booking!"

		outcome, err := f.responder.Respond(ctx, inbound("vip request"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeGeneratedSent, outcome.Kind)
		assert.Equal(t, "Sure, let's schedule a booking!", outcome.Body)
		assert.Equal(t, 1, f.generator.calls)

		require.Len(t, f.history.records, 1)
		assert.Equal(t, models.StageFallback, f.history.records[0].Stage)
		require.Len(t, f.leads.leads, 1, "lead detection applies to replies generated through routing")
	})

	t.Run("should continue the chain when the routed handler has nothing to say", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "hours", Body: "unused routing row", Category: models.StageKnowledge},
		}

		outcome, err := f.responder.Respond(ctx, inbound("hours today"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeGeneratedSent, outcome.Kind)
		assert.Equal(t, 1, f.generator.calls)
		require.Len(t, f.history.records, 1)
		assert.Equal(t, models.StageFallback, f.history.records[0].Stage)
	})

	t.Run("should pick the first matching template regardless of non-matching rows", func(t *testing.T) {
		first := models.TemplateEntry{ID: "t-1", Trigger: "hello", Body: "first"}
		second := models.TemplateEntry{ID: "t-2", Trigger: "hello", Body: "second"}
		noise := models.TemplateEntry{ID: "t-3", Trigger: "unrelated", Body: "noise"}

		for _, entries := range [][]models.TemplateEntry{
			{first, second, noise},
			{noise, first, second},
			{first, noise, second},
		} {
			f := newPipelineFixture()
			f.templates.entries = entries

			outcome, err := f.responder.Respond(ctx, inbound("hello"))

			require.NoError(t, err)
			assert.Equal(t, "first", outcome.Body)
		}
	})

	t.Run("should run the generative stage exactly once when nothing matches", func(t *testing.T) {
		f := newPipelineFixture()

		outcome, err := f.responder.Respond(ctx, inbound("completely novel question"))

		require.NoError(t, err)
		assert.Equal(t, models.OutcomeGeneratedSent, outcome.Kind)
		assert.Equal(t, 1, f.generator.calls)
		assert.Equal(t, "completely novel question", f.generator.lastMessage)
		assert.Equal(t, "gpt-test", f.generator.lastModel)
		require.Len(t, f.delivery.calls, 1)
		assert.Equal(t, f.generator.reply, f.delivery.calls[0].payload)
	})

	t.Run("should abort on delivery failure without writing history", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "price", Body: "answer"},
		}
		f.delivery.err = httperror.NewHTTPError(http.StatusBadGateway, "delivery provider returned status 500")

		_, err := f.responder.Respond(ctx, inbound("price"))

		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, httperror.ToHTTPError(err).Code)
		assert.Empty(t, f.history.records)
		assert.Empty(t, f.db.txs)
	})

	t.Run("should roll back the transaction when the history write fails", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.entries = []models.TemplateEntry{
			{ID: "t-1", Trigger: "price", Body: "answer"},
		}
		f.history.createErr = httperror.NewHTTPError(http.StatusInternalServerError, "failed to record conversation")

		_, err := f.responder.Respond(ctx, inbound("price"))

		require.Error(t, err)
		require.Len(t, f.db.txs, 1)
		assert.False(t, f.db.txs[0].committed)
		assert.True(t, f.db.txs[0].rolledBack)
	})

	t.Run("should roll back both writes when the lead write fails", func(t *testing.T) {
		f := newPipelineFixture()
		f.generator.reply = "Sure, let's schedule a booking!"
		f.leads.err = httperror.NewHTTPError(http.StatusInternalServerError, "failed to create sales lead")

		_, err := f.responder.Respond(ctx, inbound("hello"))

		require.Error(t, err)
		require.Len(t, f.db.txs, 1)
		assert.False(t, f.db.txs[0].committed)
		assert.True(t, f.db.txs[0].rolledBack)
	})

	t.Run("should propagate template store failures before any send", func(t *testing.T) {
		f := newPipelineFixture()
		f.templates.err = httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reply templates")

		_, err := f.responder.Respond(ctx, inbound("price"))

		require.Error(t, err)
		assert.Empty(t, f.delivery.calls)
		assert.Empty(t, f.history.records)
	})

	t.Run("should propagate generative failures", func(t *testing.T) {
		f := newPipelineFixture()
		f.generator.err = httperror.NewHTTPError(http.StatusServiceUnavailable, "generative backend is not configured")

		_, err := f.responder.Respond(ctx, inbound("hello"))

		require.Error(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, httperror.ToHTTPError(err).Code)
		assert.Empty(t, f.delivery.calls)
		assert.Empty(t, f.history.records)
	})

	t.Run("should error when the default handler does not answer", func(t *testing.T) {
		f := newPipelineFixture()
		logger := testLogger()
		registry := NewRegistry(&silentHandler{}, NewTemplateHandler(f.templates, logger))
		r := NewResponder(f.db, f.resolver, registry, f.delivery, f.history, f.leads, nil, nil, logger)

		_, err := r.Respond(ctx, inbound("hello"))

		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, httperror.ToHTTPError(err).Code)
	})
}

// silentHandler never matches; used to prove the default handler contract.
type silentHandler struct{}

func (h *silentHandler) Category() string { return "silent" }

func (h *silentHandler) Respond(_ context.Context, _ *models.TenantConfig, _ *models.InboundMessage) (*Reply, bool, error) {
	return nil, false, nil
}

func TestContainsBookingIntent(t *testing.T) {
	keywords := []string{"booking", "预约"}

	t.Run("should match a keyword anywhere in the text", func(t *testing.T) {
		assert.True(t, ContainsBookingIntent("Sure, let's schedule a booking!", keywords))
	})

	t.Run("should match case-insensitively", func(t *testing.T) {
		assert.True(t, ContainsBookingIntent("Your BOOKING is confirmed", keywords))
	})

	t.Run("should match non-latin keywords", func(t *testing.T) {
		assert.True(t, ContainsBookingIntent("好的，我帮您预约明天下午。", keywords))
	})

	t.Run("should not match text without keywords", func(t *testing.T) {
		assert.False(t, ContainsBookingIntent("We are open 9 to 5.", keywords))
	})

	t.Run("should ignore empty keywords", func(t *testing.T) {
		assert.False(t, ContainsBookingIntent("anything at all", []string{""}))
	})

	t.Run("should be deterministic for the same inputs", func(t *testing.T) {
		text := "Sure, let's schedule a booking!"
		first := ContainsBookingIntent(text, keywords)
		second := ContainsBookingIntent(text, keywords)
		assert.Equal(t, first, second)
		assert.True(t, first)
	})
}
