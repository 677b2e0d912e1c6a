// Package handlers contains health check plumbing shared by the HTTP server.
//
// # Health Checks
//
// Named checks run concurrently, each under its own timeout. Required checks
// decide readiness; optional checks only mark the service degraded:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(conn))
//	checker.AddOptionalCheck("cache", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("health check failed: %s", status.Message)
//	}
package handlers
