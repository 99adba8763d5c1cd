package compdex

import (
	"context"

	"github.com/kailas-cloud/compdex/internal/domain/usage"
)

// UsagePeriod selects the calendar period of a usage report.
type UsagePeriod = usage.Period

// UsageReport is interpreter token consumption for one period.
type UsageReport = usage.Report

// Usage periods. Boundaries are UTC.
const (
	UsageDay   = usage.PeriodDay
	UsageMonth = usage.PeriodMonth
)

// Usage reports interpreter token consumption for the current period.
// Without an interpreter the report is empty and unlimited.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	return c.usage.GetReport(ctx, period)
}

// usageUseCase is the internal interface for usage reporting.
type usageUseCase interface {
	GetReport(ctx context.Context, period usage.Period) usage.Report
}
