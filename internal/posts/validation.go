package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shaiso/SmartTweet/internal/domain"
)

const maxUsernameLen = 50

var errBlank = errors.New("must not be blank")

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errBlank
	}
	return nil
}

func inFuture(now time.Time) validation.RuleFunc {
	return func(value interface{}) error {
		t, _ := value.(time.Time)
		if !t.After(now) {
			return errors.New("must be in the future")
		}
		return nil
	}
}

// optionsField — варианты опроса. Пустой список допустим: тогда варианты
// сгенерирует AI при публикации.
func optionsField(options *[]string, isPoll bool) *validation.FieldRules {
	return validation.Field(options,
		validation.When(isPoll && len(*options) > 0,
			validation.Length(domain.MinPollOptions, domain.MaxPollOptions)),
		validation.Each(validation.Required, validation.RuneLength(1, domain.MaxPollOptionLen)),
	)
}

// durationField — длительность опроса; 0 означает значение по умолчанию.
func durationField(duration *int) *validation.FieldRules {
	return validation.Field(duration, validation.When(*duration != 0,
		validation.Min(domain.MinPollDuration), validation.Max(domain.MaxPollDuration)))
}

func validateSchedule(ctx context.Context, req *ScheduleRequest, now time.Time) error {
	fields := []*validation.FieldRules{
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Content, validation.Required, validation.By(notBlank)),
		validation.Field(&req.Kind, validation.Required, validation.In(domain.KindPlain, domain.KindPoll)),
		validation.Field(&req.ScheduledAt, validation.Required, validation.By(inFuture(now))),
	}
	return wrapValidation(validation.ValidateStructWithContext(ctx, req, append(fields,
		optionsField(&req.Options, req.Kind == domain.KindPoll),
		optionsField(&req.PreviewOptions, req.Kind == domain.KindPoll),
		durationField(&req.DurationMinutes),
	)...))
}

func validatePostNow(ctx context.Context, req *PostNowRequest) error {
	return wrapValidation(validation.ValidateStructWithContext(ctx, req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Content, validation.Required, validation.By(notBlank)),
		validation.Field(&req.Kind, validation.Required, validation.In(domain.KindPlain, domain.KindPoll)),
		optionsField(&req.Options, req.Kind == domain.KindPoll),
		durationField(&req.DurationMinutes),
	))
}

func validatePreview(ctx context.Context, req *PreviewRequest) error {
	return wrapValidation(validation.ValidateStructWithContext(ctx, req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Content, validation.Required, validation.By(notBlank)),
		validation.Field(&req.Kind, validation.Required, validation.In(domain.KindPlain, domain.KindPoll)),
	))
}

func validateEdit(ctx context.Context, req *EditRequest, kind domain.PostKind, now time.Time) error {
	isPoll := kind == domain.KindPoll
	return wrapValidation(validation.ValidateStructWithContext(ctx, req,
		validation.Field(&req.Content, validation.Required, validation.By(notBlank)),
		validation.Field(&req.ScheduledAt, validation.Required, validation.By(inFuture(now))),
		optionsField(&req.Options, isPoll),
		optionsField(&req.PreviewOptions, isPoll),
		durationField(&req.DurationMinutes),
	))
}

func validateUsername(ctx context.Context, username string) error {
	return wrapValidation(validation.ValidateWithContext(ctx, username,
		validation.Required,
		validation.By(notBlank),
		validation.RuneLength(1, maxUsernameLen),
	))
}

// wrapValidation переводит ошибки ozzo в domain.ErrValidation.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return fmt.Errorf("validate request: %w", err)
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}
