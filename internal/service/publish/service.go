package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/twigate/twigate/internal/boot"
	"github.com/twigate/twigate/internal/model"
	"github.com/twigate/twigate/internal/retry"
	"github.com/twigate/twigate/internal/twitter"
)

// Publisher is the slice of the remote client the coordinator calls.
type Publisher interface {
	CreateTweet(ctx context.Context, text string, mediaIDs []string, replyTo string) (*twitter.Tweet, error)
	UploadMedia(ctx context.Context, data []byte, contentType string) (string, error)
}

// SessionGate guards access to the remote session.
type SessionGate interface {
	EnsureAuthenticated(ctx context.Context) error
	Invalidate()
}

// OperationLog records outcomes.
type OperationLog interface {
	Append(entry *model.LogEntry) error
}

// Service serializes publish operations against the single session,
// applies the retry policy and records every outcome. Remote failures
// never escape as errors; every accepted request resolves to exactly one
// PublishResult and one log entry.
type Service struct {
	publisher Publisher
	session   SessionGate
	opLog     OperationLog
	policy    retry.Policy

	// mu is the session's exclusion gate: every remote call on the
	// publish path runs under it.
	mu sync.Mutex
}

func New(publisher Publisher, gate SessionGate, opLog OperationLog, config *boot.Config) *Service {
	s := &Service{
		publisher: publisher,
		session:   gate,
		opLog:     opLog,
	}
	s.policy = retry.Policy{
		MaxAttempts: config.Retry.MaxAttempts,
		Delay:       config.RetryDelay(),
		Classify:    twitter.Classify,
		OnAuthExpired: func(ctx context.Context) error {
			log.Warnf("publish: session expired mid-operation, re-authenticating")
			gate.Invalidate()
			return gate.EnsureAuthenticated(ctx)
		},
	}
	return s
}

// Publish submits one request. The request is assumed structurally valid;
// the boundary enforces shape before anything reaches here.
func (s *Service) Publish(ctx context.Context, req model.PublishRequest) model.PublishResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.EnsureAuthenticated(ctx); err != nil {
		result := failureResult(err, 0)
		s.record(req, result)
		return result
	}

	var tweet *twitter.Tweet
	attempts, err := s.policy.Do(ctx, func(ctx context.Context) error {
		mediaIDs, uploadErr := s.uploadAll(ctx, req.Media)
		if uploadErr != nil {
			return uploadErr
		}
		created, createErr := s.publisher.CreateTweet(ctx, req.Text, mediaIDs, req.ReplyTo)
		if createErr != nil {
			return createErr
		}
		tweet = created
		return nil
	})

	var result model.PublishResult
	if err != nil {
		result = failureResult(err, attempts)
	} else {
		result = model.PublishResult{
			Success:   true,
			TweetID:   tweet.ID,
			Message:   "tweet published",
			Attempts:  attempts,
			CreatedAt: tweet.CreatedAt,
		}
		log.Infof("publish: tweet %s published after %d attempt(s)", tweet.ID, attempts)
	}

	s.record(req, result)
	return result
}

func (s *Service) uploadAll(ctx context.Context, payloads []string) ([]string, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	mediaIDs := make([]string, 0, len(payloads))
	for _, payload := range payloads {
		data, contentType, err := twitter.DecodeMedia(payload)
		if err != nil {
			return nil, err
		}
		mediaID, err := s.publisher.UploadMedia(ctx, data, contentType)
		if err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, mediaID)
	}
	return mediaIDs, nil
}

// record appends the log entry for the determined outcome. An append
// failure is surfaced to the operator log only: it never changes the
// result already decided.
func (s *Service) record(req model.PublishRequest, result model.PublishResult) {
	status := model.LogStatusSuccess
	errorMessage := ""
	if !result.Success {
		status = model.LogStatusFailed
		errorMessage = result.Message
	}
	entry := &model.LogEntry{
		ID:           model.CreateID(),
		TweetID:      result.TweetID,
		Text:         req.Text,
		Status:       status,
		Attempts:     result.Attempts,
		ErrorMessage: errorMessage,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.opLog.Append(entry); err != nil {
		log.Errorf("publish: recording outcome: %v", err)
	}
}

func failureResult(err error, attempts int) model.PublishResult {
	kind := model.FailureTransient
	var retryErr *retry.Error
	switch {
	case errors.As(err, &retryErr):
		switch retryErr.Class {
		case retry.Fatal:
			kind = model.FailureFatal
		case retry.AuthExpired:
			kind = model.FailureAuth
		}
	case errors.Is(err, model.ErrorAuthentication):
		kind = model.FailureAuth
	case errors.Is(err, model.ErrorStorage):
		kind = model.FailureTransient
	default:
		if !errors.Is(err, model.ErrorOperationFailed) {
			// Media decode problems and other local errors: retrying
			// the same request cannot help.
			kind = model.FailureFatal
		}
	}

	log.Warnf("publish: request failed after %d attempt(s): %v", attempts, err)
	return model.PublishResult{
		Success:   false,
		Message:   err.Error(),
		Kind:      kind,
		Attempts:  attempts,
		CreatedAt: time.Now().UTC(),
	}
}
