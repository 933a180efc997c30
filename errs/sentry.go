// Copyright 2025 Cygnus Wealth
// This file is part of the evm-access-core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

package errs

import (
	"time"

	"github.com/getsentry/sentry-go"
)

const sentryFlushTimeout = 2 * time.Second

// reportingEnabled guards Report so callers that never configure Sentry
// pay no cost.
var reportingEnabled bool

// InitReporting configures the package-level Sentry client used by Report.
// dsn empty disables reporting (the default).
func InitReporting(dsn, environment string) error {
	if dsn == "" {
		reportingEnabled = false
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: environment}); err != nil {
		return err
	}
	reportingEnabled = true
	return nil
}

// Report sends a terminal error (typically AllEndpointsFailed) to Sentry
// with its Kind as a tag, after sanitizing the structured payload passed
// in, if any. No-op if InitReporting was never called with a DSN.
func Report(err error, kind Kind, payload interface{}) {
	if !reportingEnabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_kind", string(kind))
		if payload != nil {
			scope.SetContext("payload", map[string]interface{}{"sanitized": Sanitize(payload)})
		}
		sentry.CaptureException(err)
	})
}

// FlushReporting blocks up to sentryFlushTimeout for any in-flight Sentry
// events to be delivered, typically called before process exit.
func FlushReporting() {
	if reportingEnabled {
		sentry.Flush(sentryFlushTimeout)
	}
}
