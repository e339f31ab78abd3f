package models

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
)

const (
	ChannelTypeChannel = "channel"
	ChannelTypeDM      = "dm"
)

type User struct {
	ID             int64      `json:"id,string"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	AvatarInitials string     `json:"avatarInitials"`
	Status         string     `json:"status"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	Password       []byte     `json:"-"`
}

type Channel struct {
	ID          int64     `json:"id,string"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Type        string    `json:"type"`
	CreatorID   int64     `json:"creatorID,string"`
	Members     []int64   `json:"members,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsMember reports whether userID may read and write the channel's message
// history. The creator counts as a member even without a members entry.
func (c *Channel) IsMember(userID int64) bool {
	if userID == c.CreatorID {
		return true
	}
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID         int64      `json:"id,string"`
	ChannelID  int64      `json:"channelID,string"`
	AuthorID   int64      `json:"authorID,string"`
	AuthorName string     `json:"authorName"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
	Edited     bool       `json:"edited"`
	EditedAt   *time.Time `json:"editedAt,omitempty"`
}

type ConfigFile struct {
	Address           string
	Port              string
	BehindNginx       bool
	TlsCert           string
	TlsKey            string
	PrintHttpRequests bool
	LogToFile         bool
	LogLevel          string
	JwtSecret         string
	SnowflakeWorkerID int64
	SelfContained     bool
	DbUser            string
	DbPassword        string
	DbAddress         string
	DbPort            string
	DbDatabase        string
	RedisAddress      string
	RedisPassword     string
	RedisDatabase     int
}
