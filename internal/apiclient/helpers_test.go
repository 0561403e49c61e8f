// internal/apiclient/helpers_test.go
package apiclient

import "go.uber.org/zap"

func testLogger() *zap.Logger {
	return zap.NewNop()
}
