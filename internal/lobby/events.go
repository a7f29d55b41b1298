package lobby

// Lobby-level wire event types. Match-level events come from the
// simulation's own log; these cover lifecycle and matchmaking.
const (
	EventLobbyJoined         = "lobby_joined"
	EventLobbyList           = "lobby_list"
	EventPlayerJoinedLobby   = "player_joined_lobby"
	EventPlayerLeftLobby     = "player_left_lobby"
	EventMatchStarting       = "match_starting"
	EventMatchStartCancelled = "match_start_cancelled"
	EventMatchStarted        = "match_started"
	EventMatchEnded          = "match_ended"
	EventJoinFailed          = "lobby_join_failed"
	EventCreationFailed      = "lobby_creation_failed"
	EventMatchmakingFailed   = "matchmaking_failed"
)

type JoinedPayload struct {
	LobbyID      string `json:"lobbyId"`
	PlayerCount  int    `json:"playerCount"`
	MaxPlayers   int    `json:"maxPlayers"`
	Mode         string `json:"mode"`
	Status       State  `json:"status"`
	IsInProgress bool   `json:"isInProgress"`
}

type PlayerJoinedPayload struct {
	LobbyID     string `json:"lobbyId"`
	PlayerCount int    `json:"playerCount"`
	PlayerID    string `json:"playerId"`
	Timestamp   int64  `json:"timestamp"`
}

type PlayerLeftPayload struct {
	LobbyID     string `json:"lobbyId"`
	PlayerCount int    `json:"playerCount"`
	PlayerID    string `json:"playerId"`
	Timestamp   int64  `json:"timestamp"`
}

type StartingPayload struct {
	LobbyID          string `json:"lobbyId"`
	CountdownSeconds int    `json:"countdownSeconds"`
}

type CancelledPayload struct {
	LobbyID string `json:"lobbyId"`
	Reason  string `json:"reason"`
}

type StartedPayload struct {
	LobbyID    string `json:"lobbyId"`
	KillTarget int    `json:"killTarget"`
	IsLateJoin bool   `json:"isLateJoin,omitempty"`
}

type PlayerStat struct {
	ID     string `json:"id"`
	Team   string `json:"team"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

type EndedPayload struct {
	WinnerTeam  string       `json:"winnerTeam"`
	RedKills    int          `json:"redKills"`
	BlueKills   int          `json:"blueKills"`
	Duration    int64        `json:"duration"`
	PlayerStats []PlayerStat `json:"playerStats"`
}

type ListPayload struct {
	Lobbies    []Info `json:"lobbies"`
	TotalCount int    `json:"totalCount"`
}

type FailurePayload struct {
	Reason string `json:"reason"`
}
