package logger

import (
	"github.com/ThreeDotsLabs/watermill"
)

// WatermillAdapter routes watermill's router and pubsub logs through zap
type WatermillAdapter struct {
	log    *Logger
	fields watermill.LogFields
}

func NewWatermillAdapter(log *Logger) watermill.LoggerAdapter {
	return &WatermillAdapter{log: log}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Errorw(msg, append(a.keyvals(fields), "error", err)...)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Infow(msg, a.keyvals(fields)...)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debugw(msg, a.keyvals(fields)...)
}

// Trace is too chatty for our logs and is folded into debug
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debugw(msg, a.keyvals(fields)...)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{log: a.log, fields: a.fields.Add(fields)}
}

func (a *WatermillAdapter) keyvals(fields watermill.LogFields) []interface{} {
	all := a.fields.Add(fields)
	kv := make([]interface{}, 0, len(all)*2)
	for k, v := range all {
		kv = append(kv, k, v)
	}
	return kv
}
