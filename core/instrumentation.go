package orchestration

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/tkresnik/aria-core/core"

var tracer = otel.Tracer(scopeName)
