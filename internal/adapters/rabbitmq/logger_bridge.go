package rabbitmq_adapter

import (
	"property-harvester-service/internal/core/port"
)

// PkgLoggerBridge адаптирует port.LoggerPort приложения к минимальному
// контракту логгера пакета pkg/rabbitmq
type PkgLoggerBridge struct {
	logger port.LoggerPort
}

// NewPkgLoggerBridge создает новый мост
func NewPkgLoggerBridge(logger port.LoggerPort) *PkgLoggerBridge {
	return &PkgLoggerBridge{logger: logger}
}

// toFields преобразует вариативные пары ключ-значение в port.Fields.
// Непарный "хвост" кладется под ключом UNPAIRED_KEY.
func toFields(keysAndValues ...interface{}) port.Fields {
	fields := port.Fields{}
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			key, ok := keysAndValues[i].(string)
			if !ok {
				key = "UNKNOWN_KEY"
			}
			fields[key] = keysAndValues[i+1]
		} else {
			fields["UNPAIRED_KEY"] = keysAndValues[i]
		}
	}
	return fields
}

func (b *PkgLoggerBridge) Debug(msg string, keysAndValues ...interface{}) {
	b.logger.Debug(msg, toFields(keysAndValues...))
}

func (b *PkgLoggerBridge) Info(msg string, keysAndValues ...interface{}) {
	b.logger.Info(msg, toFields(keysAndValues...))
}

func (b *PkgLoggerBridge) Warn(msg string, keysAndValues ...interface{}) {
	b.logger.Warn(msg, toFields(keysAndValues...))
}

func (b *PkgLoggerBridge) Error(err error, msg string, keysAndValues ...interface{}) {
	b.logger.Error(msg, err, toFields(keysAndValues...))
}
