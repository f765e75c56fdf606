package cache

import "fmt"

func OtpSendCounterKey(phone string) string {
	return "otp:sends:" + phone
}

func MeritListKey(examID uint) string {
	return fmt.Sprintf("ranking:merit:%d:full", examID)
}

// MeritListPattern matches every cached view of one exam's merit list.
func MeritListPattern(examID uint) string {
	return fmt.Sprintf("ranking:merit:%d:*", examID)
}

func LeaderboardKey(variant string) string {
	return "ranking:leaderboard:" + variant
}

func RankSnapshotKey(variant string) string {
	return "ranking:snapshot:" + variant
}
