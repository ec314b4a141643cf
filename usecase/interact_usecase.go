package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"prism-connector/domain/dto"
	"prism-connector/domain/model"
	"prism-connector/domain/repository"
	"prism-connector/infrastructure/logger"
)

// IDraftGenerator produces reply text from a comment plus whatever history
// the fan memory has. Implementations may call out to an LLM; the default is
// canned.
type IDraftGenerator interface {
	Draft(ctx context.Context, personaID, commenterName, commentText, fanContext string) (string, error)
}

// IDraftNotifier pushes freshly created drafts to connected dashboards.
type IDraftNotifier interface {
	Broadcast(personaID string, draft *model.ReplyDraft)
}

type IInteractUsecase interface {
	// HandleWebhook ingests a verified webhook payload. Per-entry failures
	// are isolated so one bad entry never drops its siblings.
	HandleWebhook(ctx context.Context, payload *dto.WebhookPayload)
	PendingReplies(ctx context.Context, personaID string) ([]*model.ReplyDraft, error)
	SendReply(ctx context.Context, replyID, personaID string) error
	DismissReply(ctx context.Context, replyID string) error
	Setting(ctx context.Context, personaID string) (model.AutoReplyMode, error)
	SetSetting(ctx context.Context, personaID string, mode model.AutoReplyMode) error
}

type interactUsecase struct {
	replies        repository.IReply
	fans           repository.IFanMemory
	store          *CredentialStore
	publish        IPublishUsecase
	generator      IDraftGenerator
	notifier       IDraftNotifier
	defaultPersona string
}

func NewInteractUsecase(
	replies repository.IReply,
	fans repository.IFanMemory,
	store *CredentialStore,
	publish IPublishUsecase,
	generator IDraftGenerator,
	notifier IDraftNotifier,
	defaultPersona string,
) IInteractUsecase {
	if generator == nil {
		generator = cannedGenerator{}
	}
	if defaultPersona == "" {
		defaultPersona = "demo"
	}
	return &interactUsecase{
		replies:        replies,
		fans:           fans,
		store:          store,
		publish:        publish,
		generator:      generator,
		notifier:       notifier,
		defaultPersona: defaultPersona,
	}
}

func (u *interactUsecase) HandleWebhook(ctx context.Context, payload *dto.WebhookPayload) {
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "comments" {
				continue
			}
			if err := u.handleComment(ctx, entry.ID, &change.Value); err != nil {
				logger.GetLogger().
					WithField("entry_id", entry.ID).
					WithField("comment_id", change.Value.ID).
					WithField("error", err).
					Error("Webhook comment processing failed")
			}
		}
	}
}

func (u *interactUsecase) handleComment(ctx context.Context, entryID string, value *dto.CommentValue) error {
	text := strings.TrimSpace(value.Text)
	if text == "" {
		return nil
	}

	personaID := u.defaultPersona
	conn, connected := u.store.FindByAccountID(entryID)
	if connected {
		personaID = conn.PersonaID
	}

	fanContext := ""
	if u.fans != nil {
		if _, err := u.fans.RecordInteraction(ctx, personaID, value.From.ID, value.From.Name, text); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Fan memory write failed")
		} else if c, err := u.fans.Context(ctx, personaID, value.From.ID); err == nil {
			fanContext = c
		}
	}

	draftText, err := u.generator.Draft(ctx, personaID, value.From.Name, text, fanContext)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Draft generation failed; using canned reply")
		draftText, _ = cannedGenerator{}.Draft(ctx, personaID, value.From.Name, text, fanContext)
	}

	mediaID := value.Media.ID
	if mediaID == "" {
		mediaID = value.MediaID
	}

	draft := &model.ReplyDraft{
		ReplyID:       uuid.New().String(),
		PersonaID:     personaID,
		IGCommentID:   value.ID,
		IGMediaID:     mediaID,
		CommenterName: value.From.Name,
		CommentText:   text,
		DraftText:     draftText,
		RiskLevel:     ClassifyRisk(text),
		Status:        model.ReplyPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := u.replies.InsertDraft(ctx, draft); err != nil {
		return err
	}

	log := logger.GetLogger().
		WithField("reply_id", draft.ReplyID).
		WithField("persona_id", personaID).
		WithField("risk", draft.RiskLevel)

	mode, err := u.replies.GetMode(ctx, personaID)
	if err != nil {
		log.WithField("error", err).Warn("Auto-reply mode lookup failed; leaving draft pending")
		mode = model.AutoReplyDraft
	}

	// Auto mode dispatches low-risk drafts in the same pass; high-risk always
	// waits for a human regardless of mode.
	if mode == model.AutoReplyAuto && draft.RiskLevel == model.RiskLow && connected {
		if err := u.publish.SendCommentReply(ctx, conn, draft.IGCommentID, draft.DraftText); err != nil {
			log.WithField("error", err).Error("Auto reply send failed; draft stays pending")
		} else if err := u.replies.Transition(ctx, draft.ReplyID, model.ReplySent); err != nil {
			log.WithField("error", err).Error("Draft state update failed after send")
		} else {
			draft.Status = model.ReplySent
			log.Info("Auto reply sent")
		}
	} else {
		log.Info("Reply draft created")
	}

	if u.notifier != nil {
		u.notifier.Broadcast(personaID, draft)
	}
	return nil
}

func (u *interactUsecase) PendingReplies(ctx context.Context, personaID string) ([]*model.ReplyDraft, error) {
	return u.replies.ListPending(ctx, personaID)
}

func (u *interactUsecase) SendReply(ctx context.Context, replyID, personaID string) error {
	draft, err := u.replies.GetDraft(ctx, replyID)
	if err != nil {
		return newError(ErrNotFound, "reply %s not found", replyID)
	}
	if draft.Status != model.ReplyPending {
		return newError(ErrValidation, "reply %s already %s", replyID, draft.Status)
	}

	conn, ok := u.store.Get(personaID)
	if !ok {
		return newError(ErrCredential,
			"Instagram account not connected for persona_id=%s. Call /api/instagram/auth first.", personaID)
	}
	if err := u.publish.SendCommentReply(ctx, conn, draft.IGCommentID, draft.DraftText); err != nil {
		return err
	}
	if err := u.replies.Transition(ctx, replyID, model.ReplySent); err != nil {
		return err
	}
	logger.GetLogger().
		WithField("reply_id", replyID).
		WithField("persona_id", personaID).
		Info("Reply sent")
	return nil
}

func (u *interactUsecase) DismissReply(ctx context.Context, replyID string) error {
	if _, err := u.replies.GetDraft(ctx, replyID); err != nil {
		return newError(ErrNotFound, "reply %s not found", replyID)
	}
	if err := u.replies.Transition(ctx, replyID, model.ReplyDismissed); err != nil {
		return newError(ErrValidation, "reply %s is not pending", replyID)
	}
	return nil
}

func (u *interactUsecase) Setting(ctx context.Context, personaID string) (model.AutoReplyMode, error) {
	return u.replies.GetMode(ctx, personaID)
}

func (u *interactUsecase) SetSetting(ctx context.Context, personaID string, mode model.AutoReplyMode) error {
	if mode != model.AutoReplyDraft && mode != model.AutoReplyAuto {
		return newError(ErrValidation, "mode must be draft or auto, got %q", mode)
	}
	return u.replies.SetMode(ctx, personaID, mode)
}

// cannedGenerator is the built-in fallback drafter.
type cannedGenerator struct{}

func (cannedGenerator) Draft(_ context.Context, _, commenterName, _, fanContext string) (string, error) {
	name := commenterName
	if name == "" {
		name = "there"
	}
	if fanContext != "" {
		return fmt.Sprintf("Hi %s, great to hear from you again! Thanks for the comment 💛", name), nil
	}
	return fmt.Sprintf("Hi %s, thanks so much for your comment! 🙌", name), nil
}
