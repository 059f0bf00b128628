package ranking

// Key prefixes of the persisted layout.
const (
	leaderboardPrefix = "ranking:"
	playerPrefix      = "player:"
)

// LeaderboardKey names the sorted set holding a mode's top entries.
func LeaderboardKey(mode string) string {
	return leaderboardPrefix + mode
}

// PlayerBestKey names the string key holding a player's best entry in a mode.
// Neither part is escaped.
func PlayerBestKey(mode, name string) string {
	return playerPrefix + mode + ":" + name
}
