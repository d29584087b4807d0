package knowledge

import "github.com/opsstack/incident-rca/internal/models"

// SeedCorpus returns the fixed set of canonical DevOps issue/solution pairs
// embedded into the retrieval index when no persisted index exists.
func SeedCorpus() []models.KnowledgeDocument {
	return []models.KnowledgeDocument{
		{
			Issue:     "Database Connection Timeout",
			Category:  models.CategoryDatabase,
			Solution:  "1. Check database server status\n2. Verify network connectivity\n3. Review connection pool settings\n4. Check for long-running queries\n5. Increase timeout settings if necessary",
			Rationale: "Connection timeouts typically occur due to network issues, overloaded database, or exhausted connection pools.",
		},
		{
			Issue:     "Out of Memory Error",
			Category:  models.CategoryMemory,
			Solution:  "1. Identify memory-intensive processes\n2. Review application memory leaks\n3. Increase heap size allocation\n4. Enable garbage collection logging\n5. Scale horizontally if needed",
			Rationale: "OOM errors indicate insufficient memory allocation or memory leaks. Monitoring and profiling are essential.",
		},
		{
			Issue:     "High CPU Usage",
			Category:  models.CategoryCPU,
			Solution:  "1. Identify CPU-intensive processes\n2. Check for infinite loops or stuck threads\n3. Review algorithmic efficiency\n4. Enable CPU profiling\n5. Consider load balancing",
			Rationale: "High CPU usage can be caused by inefficient code, excessive load, or runaway processes.",
		},
		{
			Issue:     "Disk Space Full",
			Category:  models.CategoryDisk,
			Solution:  "1. Identify large files and logs\n2. Clean up old logs and temporary files\n3. Set up log rotation\n4. Expand disk capacity\n5. Archive old data",
			Rationale: "Running out of disk space can cause system instability. Regular cleanup and monitoring are crucial.",
		},
		{
			Issue:     "Network Connection Refused",
			Category:  models.CategoryNetwork,
			Solution:  "1. Verify service is running\n2. Check firewall rules\n3. Validate port configuration\n4. Review service health checks\n5. Check network connectivity",
			Rationale: "Connection refused errors indicate the service is not listening on the expected port or network issues exist.",
		},
		{
			Issue:     "Authentication Failed",
			Category:  models.CategorySecurity,
			Solution:  "1. Verify credentials are correct\n2. Check token expiration\n3. Review permission settings\n4. Validate authentication service status\n5. Check certificate validity",
			Rationale: "Authentication failures can result from expired credentials, misconfigured permissions, or service outages.",
		},
		{
			Issue:     "Null Pointer Exception",
			Category:  models.CategoryApplication,
			Solution:  "1. Review stack trace for exact location\n2. Add null checks in code\n3. Validate input parameters\n4. Review recent code changes\n5. Add defensive programming practices",
			Rationale: "Null pointer exceptions indicate missing data validation. Proper error handling prevents cascading failures.",
		},
		{
			Issue:     "HTTP 500 Internal Server Error",
			Category:  models.CategoryApplication,
			Solution:  "1. Check application logs for exceptions\n2. Review recent deployments\n3. Verify configuration settings\n4. Check database connectivity\n5. Review upstream service dependencies",
			Rationale: "500 errors indicate server-side failures. Logs and monitoring provide insights into root causes.",
		},
		{
			Issue:     "HTTP 503 Service Unavailable",
			Category:  models.CategoryNetwork,
			Solution:  "1. Check service health status\n2. Review load balancer configuration\n3. Verify autoscaling settings\n4. Check for resource exhaustion\n5. Review circuit breaker status",
			Rationale: "503 errors indicate temporary unavailability. Often related to overload or maintenance.",
		},
		{
			Issue:     "DNS Resolution Failed",
			Category:  models.CategoryNetwork,
			Solution:  "1. Verify DNS server status\n2. Check DNS configuration\n3. Review /etc/hosts file\n4. Test with nslookup/dig\n5. Check network connectivity to DNS",
			Rationale: "DNS failures prevent service discovery. Proper DNS configuration is critical for distributed systems.",
		},
	}
}
