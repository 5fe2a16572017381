package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"photopro/db"
)

var startTime = time.Now()

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SystemMetrics reports host and process resource usage.
func SystemMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, collectSystemMetrics())
}

func collectSystemMetrics() gin.H {
	metrics := gin.H{
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": time.Since(startTime).Seconds(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		metrics["cpu_percent"] = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		metrics["memory"] = gin.H{
			"total_gb":     float64(vm.Total) / (1 << 30),
			"available_gb": float64(vm.Available) / (1 << 30),
			"used_percent": vm.UsedPercent,
		}
	}

	if du, err := disk.Usage("/"); err == nil {
		metrics["disk"] = gin.H{
			"total_gb":     float64(du.Total) / (1 << 30),
			"free_gb":      float64(du.Free) / (1 << 30),
			"used_percent": du.UsedPercent,
		}
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		procMetrics := gin.H{}
		if info, err := proc.MemoryInfo(); err == nil {
			procMetrics["memory_mb"] = float64(info.RSS) / (1 << 20)
		}
		if pct, err := proc.CPUPercent(); err == nil {
			procMetrics["cpu_percent"] = pct
		}
		metrics["process"] = procMetrics
	}

	return metrics
}

// ApplicationMetrics reports database-derived product metrics.
func ApplicationMetrics(c *gin.Context) {
	dbConn := db.GetDB()

	var totalUsers, activeUsers, recentUsers int
	var totalPhotos, completedPhotos, recentPhotos int
	var creditTxCount int

	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&totalUsers)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM users WHERE is_active = TRUE`).Scan(&activeUsers)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM users WHERE created_at >= NOW() - INTERVAL '1 day'`).Scan(&recentUsers)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM photos`).Scan(&totalPhotos)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM photos WHERE status = 'completed'`).Scan(&completedPhotos)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM photos WHERE created_at >= NOW() - INTERVAL '1 day'`).Scan(&recentPhotos)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM credit_transactions WHERE amount < 0`).Scan(&creditTxCount)

	successRate := 0.0
	if totalPhotos > 0 {
		successRate = float64(completedPhotos) / float64(totalPhotos) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"users": gin.H{
			"total":          totalUsers,
			"active":         activeUsers,
			"recent_signups": recentUsers,
		},
		"photos": gin.H{
			"total":              totalPhotos,
			"completed":          completedPhotos,
			"recent_generations": recentPhotos,
			"success_rate":       successRate,
		},
		"credits": gin.H{
			"total_transactions": creditTxCount,
		},
	})
}

// DetailedHealth combines a database ping with resource thresholds into an
// overall status of healthy, degraded or unhealthy.
func DetailedHealth(c *gin.Context) {
	status := "healthy"
	issues := []string{}

	dbStart := time.Now()
	dbStatus := gin.H{"status": "healthy"}
	if err := db.GetDB().Ping(); err != nil {
		status = "unhealthy"
		issues = append(issues, "Database connectivity issues")
		dbStatus = gin.H{"status": "unhealthy", "error": err.Error()}
	} else {
		dbStatus["response_time_ms"] = float64(time.Since(dbStart).Microseconds()) / 1000
	}

	system := collectSystemMetrics()
	if memInfo, ok := system["memory"].(gin.H); ok {
		if used, ok := memInfo["used_percent"].(float64); ok && used > 90 && status == "healthy" {
			status = "degraded"
			issues = append(issues, "High memory usage")
		}
	}
	if cpuPct, ok := system["cpu_percent"].(float64); ok && cpuPct > 90 && status == "healthy" {
		status = "degraded"
		issues = append(issues, "High CPU usage")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": time.Since(startTime).Seconds(),
		"issues":         issues,
		"system":         system,
		"database":       dbStatus,
	})
}
