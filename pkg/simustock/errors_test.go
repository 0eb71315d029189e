package simustock

import (
	"errors"
	"fmt"
	"testing"
)

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}

func TestErrorWrapping(t *testing.T) {
	t.Parallel()

	base := errors.New("dial tcp: refused")
	err := WrapError(ErrCodeUpstream, "gemini request failed", base)
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to match base")
	}
	if got := err.Error(); got != "UPSTREAM_ERROR: gemini request failed: dial tcp: refused" {
		t.Fatalf("unexpected message: %s", got)
	}

	outer := fmt.Errorf("search: %w", err)
	if !IsErrorCode(outer, ErrCodeUpstream) {
		t.Fatal("expected code through fmt wrapping")
	}
	if CodeOf(errors.New("plain")) != ErrCodeInternal {
		t.Fatal("unclassified errors should be internal")
	}
	if CodeOf(nil) != "" {
		t.Fatal("nil error has no code")
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	pt := DefaultLocale()
	tests := []struct {
		err  error
		want string
	}{
		{NewError(ErrCodeValidation, ErrMsgTooShort), "Por favor, insira um ticker válido."},
		{NewError(ErrCodeConfiguration, "missing key"), pt.Messages.Configuration},
		{WrapError(ErrCodeUpstream, "x", errors.New("secret detail")), "Falha ao obter dados reais. Verifique o ticker e tente novamente."},
		{NewError(ErrCodeNormalization, "x"), pt.Messages.NoData},
		{NewError(ErrCodeStale, "x"), pt.Messages.Superseded},
		{NewError(ErrCodeNotFound, "x"), pt.Messages.NotFound},
		{errors.New("boom"), pt.Messages.Internal},
	}
	for _, tc := range tests {
		if got := UserMessage(tc.err, nil); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}

	en, err := LookupLocale("en-US")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := UserMessage(NewError(ErrCodeValidation, ErrMsgTooShort), en); got != "Please enter a valid ticker." {
		t.Fatalf("unexpected english message: %q", got)
	}
}
