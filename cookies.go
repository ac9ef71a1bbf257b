package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/authclient/pkg/logger"
	"github.com/dmitrymomot/authclient/pkg/session"
	"github.com/dmitrymomot/authclient/pkg/transport"
)

// cookieRecord is the persisted form of a jar cookie; the jar only exposes name and value.
type cookieRecord struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// cookieKeeper mirrors the transport's cookie jar (which holds the refresh token)
// into durable storage, so a restarted process can still refresh its session.
type cookieKeeper struct {
	storage   session.Storage
	key       string
	transport *transport.HTTPTransport
	logger    *slog.Logger
}

func (k *cookieKeeper) restore(ctx context.Context) {
	raw, err := k.storage.Get(ctx, k.key)
	switch {
	case errors.Is(err, session.ErrRecordNotFound):
		return
	case errors.Is(err, session.ErrCorruptRecord):
		k.logger.WarnContext(ctx, "discarding corrupted cookie record", logger.Error(err))
		k.forget(ctx)
		return
	case err != nil:
		k.logger.WarnContext(ctx, "cookie record unreadable", logger.Error(err))
		return
	}

	var records []cookieRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		k.logger.WarnContext(ctx, "discarding corrupted cookie record", logger.Error(err))
		k.forget(ctx)
		return
	}

	cookies := make([]*http.Cookie, 0, len(records))
	for _, r := range records {
		if r.Name != "" {
			cookies = append(cookies, &http.Cookie{Name: r.Name, Value: r.Value, Path: "/"})
		}
	}
	k.transport.SetCookies(cookies)
}

func (k *cookieKeeper) save(ctx context.Context) {
	cookies := k.transport.Cookies()
	if len(cookies) == 0 {
		k.forget(ctx)
		return
	}

	records := make([]cookieRecord, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, cookieRecord{Name: c.Name, Value: c.Value})
	}

	raw, err := json.Marshal(records)
	if err == nil {
		err = k.storage.Set(ctx, k.key, raw)
	}
	if err != nil {
		k.logger.WarnContext(ctx, "cookies not persisted", logger.Error(err))
	}
}

func (k *cookieKeeper) forget(ctx context.Context) {
	if err := k.storage.Delete(ctx, k.key); err != nil {
		k.logger.WarnContext(ctx, "cookie record not removed", logger.Error(err))
	}
}
