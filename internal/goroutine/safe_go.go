package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/campusmarket/campus-market-backend/internal/logger"
)

// SafeGo запускает фоновую горутину с обработкой panic.
// Используется для всех fire-and-forget задач (уведомления, прогрев кэша),
// чтобы паника в побочном эффекте не роняла процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		logger.Errorf("goroutine: panic восстановлен: %v\nStack trace:\n%s", r, debug.Stack())
	}
}
