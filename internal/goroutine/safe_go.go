package goroutine

import (
	"runtime/debug"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go rh.Run(fn)
}

// Run выполняет fn в текущей горутине и гасит panic. Возвращает true, если panic был.
func (rh *RecoveryHandler) Run(fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			rh.logger.Errorf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()
	fn()
	return false
}

// logrusAdapter пишет паники в общий логгер приложения.
type logrusAdapter struct{}

func (logrusAdapter) Errorf(format string, args ...interface{}) {
	logger.Log.Errorf(format, args...)
}

// DefaultRecoveryHandler - глобальный обработчик, пишущий в logger.Log
var DefaultRecoveryHandler = NewRecoveryHandler(logrusAdapter{})

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// Recover выполняет fn с защитой от panic в текущей горутине.
func Recover(fn func()) bool {
	return DefaultRecoveryHandler.Run(fn)
}
