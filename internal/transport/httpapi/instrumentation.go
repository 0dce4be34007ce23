package httpapi

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-ivr/internal/transport/httpapi"

var logger = otelslog.NewLogger(scopeName)
