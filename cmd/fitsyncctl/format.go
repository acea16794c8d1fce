package main

import (
	"fmt"
	"strings"

	"fitsync/internal/client"
	"fitsync/internal/core"

	"github.com/fatih/color"
)

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func statusColor(status core.DeviceStatus) string {
	switch status {
	case core.DeviceStatusConnected:
		return color.GreenString(string(status))
	case core.DeviceStatusSyncing:
		return color.CyanString(string(status))
	case core.DeviceStatusError:
		return color.RedString(string(status))
	default:
		return color.New(color.Faint).Sprint(status)
	}
}

func formatDevice(d core.DeviceConnection) string {
	lastSync := "never"
	if d.LastSyncAt != nil {
		lastSync = d.LastSyncAt.Local().Format("2006-01-02 15:04")
	}
	primary := ""
	if d.IsPrimary {
		primary = " *"
	}
	return fmt.Sprintf("%s %s %s %s %s%s",
		padRight(d.ID, 24),
		padRight(string(d.Provider), 16),
		padRight(d.Name, 16),
		statusColor(d.Status),
		color.New(color.Faint).Sprintf("last sync %s", lastSync),
		primary)
}

func formatSummary(s client.SyncSummary) string {
	failed := fmt.Sprintf("%d failed", s.FailedCount)
	if s.FailedCount > 0 {
		failed = color.RedString(failed)
	}
	return fmt.Sprintf("Synced %d of %d devices, %s", s.SuccessCount, s.Total, failed)
}

func formatActivity(h core.HealthData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", h.Date.Format(core.DateLayout), h.Provider)
	fmt.Fprintf(&b, "  steps           %d\n", h.Steps)
	fmt.Fprintf(&b, "  calories out    %.0f kcal\n", h.CaloriesBurned)
	fmt.Fprintf(&b, "  active minutes  %d", h.ActiveMinutes)
	if h.HeartRate != nil {
		fmt.Fprintf(&b, "\n  heart rate      %.0f bpm", *h.HeartRate)
	}
	if h.Distance != nil {
		fmt.Fprintf(&b, "\n  distance        %.2f km", *h.Distance/1000)
	}
	if h.Weight != nil {
		fmt.Fprintf(&b, "\n  weight          %.1f kg", *h.Weight)
	}
	return b.String()
}

func formatBalance(b core.DailyBalance) string {
	var status string
	switch b.BalanceStatus {
	case core.BalanceBalanced:
		status = color.GreenString(string(b.BalanceStatus))
	case core.BalanceSlightImbalance:
		status = color.YellowString(string(b.BalanceStatus))
	default:
		status = color.RedString(string(b.BalanceStatus))
	}
	return fmt.Sprintf("%s  in %.0f kcal, out %.0f kcal, balance %+.0f kcal  %s",
		b.Date.Format(core.DateLayout), b.CaloriesIn, b.CaloriesOut, b.Balance, status)
}
