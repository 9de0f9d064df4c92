package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
)

// AtomWriter は承認済みBotのAtomフィードを書き出すインターフェース。
type AtomWriter interface {
	WriteAtom(ctx context.Context, w io.Writer) error
}

// FeedHandler は承認済みBotのフィード配信ハンドラー。
type FeedHandler struct {
	writer AtomWriter
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(writer AtomWriter) *FeedHandler {
	return &FeedHandler{writer: writer}
}

// Atom は新着の承認済みBotをAtom形式で返す。
// GET /feeds/bots.atom
// 生成途中のエラーで不完全なXMLを返さないようバッファしてから書き込む。
func (h *FeedHandler) Atom(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.writer.WriteAtom(r.Context(), &buf); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write atom feed", slog.String("error", err.Error()))
	}
}
