package logging

import (
	"log"
	"time"
)

// LogRequest logs an outgoing request to an upstream service.
func LogRequest(component, method, url string, params map[string]interface{}) {
	if len(params) > 0 {
		log.Printf("[%s] %s %s params=%v", component, method, url, params)
	} else {
		log.Printf("[%s] %s %s", component, method, url)
	}
}

// LogResponse logs a response received from an upstream service.
func LogResponse(component string, statusCode int, duration time.Duration, resultCount int) {
	log.Printf("[%s] response status=%d duration=%dms results=%d",
		component, statusCode, duration.Milliseconds(), resultCount)
}

// LogError logs a failed operation.
func LogError(component, operation string, err error) {
	log.Printf("[%s] %s error: %v", component, operation, err)
}

// LogWarn logs a recoverable data problem.
func LogWarn(component, format string, args ...interface{}) {
	log.Printf("[%s] WARNING: "+format, append([]interface{}{component}, args...)...)
}

// LogTransform logs a stage that turns n inputs into m outputs.
func LogTransform(component string, inputCount, outputCount int, duration time.Duration) {
	log.Printf("[%s] transformed %d -> %d records in %dms",
		component, inputCount, outputCount, duration.Milliseconds())
}

// LogWrite logs a layer write to the spatial store.
func LogWrite(layer string, count int, duration time.Duration) {
	log.Printf("[sink] wrote %d rows to layer %s in %dms",
		count, layer, duration.Milliseconds())
}
