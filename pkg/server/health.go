package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"travel-gateway/pkg/version"
)

// handleHealth always answers 200; it reports, it does not probe.
func (s *GatewayServer) handleHealth(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
		"uptime": time.Since(s.started).Seconds(),
		"memory": gin.H{
			"alloc":      mem.Alloc,
			"heapAlloc":  mem.HeapAlloc,
			"heapInuse":  mem.HeapInuse,
			"sys":        mem.Sys,
			"numGC":      mem.NumGC,
			"goroutines": runtime.NumGoroutine(),
		},
		"cache":   s.cache.Stats(c.Request.Context()),
		"version": version.GetInfo(),
	})
}
