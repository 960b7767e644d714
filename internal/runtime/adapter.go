// Copyright 2025 The Konverge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package runtime provides the runtime implementation for the Konverge application.
package runtime

import "github.com/charmbracelet/log"

// loggerAdapter wraps a charmbracelet logger behind the LoggerProvider seam
// so the runtime does not depend on a concrete logging package.
type loggerAdapter struct {
	logger *log.Logger
}

// NewLoggerAdapter exposes a charmbracelet log.Logger as a LoggerProvider.
func NewLoggerAdapter(logger *log.Logger) LoggerProvider {
	return &loggerAdapter{logger: logger}
}

func (la *loggerAdapter) Debug(msg string, keyvals ...interface{}) {
	la.logger.Debug(msg, keyvals...)
}

func (la *loggerAdapter) Info(msg string, keyvals ...interface{}) {
	la.logger.Info(msg, keyvals...)
}

func (la *loggerAdapter) Warn(msg string, keyvals ...interface{}) {
	la.logger.Warn(msg, keyvals...)
}

func (la *loggerAdapter) Error(msg string, keyvals ...interface{}) {
	la.logger.Error(msg, keyvals...)
}

func (la *loggerAdapter) Fatal(msg string, keyvals ...interface{}) {
	la.logger.Fatal(msg, keyvals...)
}

func (la *loggerAdapter) With(keyvals ...interface{}) LoggerProvider {
	return &loggerAdapter{logger: la.logger.With(keyvals...)}
}
