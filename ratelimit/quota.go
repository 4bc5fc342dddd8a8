package ratelimit

// Quota defines a rate limit budget.
type Quota struct {
	Name     string   // identifier used in logs and errors, e.g. "airtable"
	Limit    int      // permits per window; zero or less means unlimited
	Window   Window   // PerSecond, PerMinute, PerHour, PerDay or Every(d)
	Strategy Strategy // Wait, FailFast, LogOnly
}
