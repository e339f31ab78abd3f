package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"sagechat-backend/internal/feed"
	"sagechat-backend/internal/models"
	"sagechat-backend/internal/snowflake"
)

// SQL is the authoritative store backed by sqlite or mysql. Document ids are
// assigned here, never by callers, so a client can't invent a colliding id.
type SQL struct {
	sugar  *zap.SugaredLogger
	db     *sql.DB
	broker feed.Broker
}

func NewSQL(sugar *zap.SugaredLogger, db *sql.DB, broker feed.Broker) *SQL {
	return &SQL{
		sugar:  sugar,
		db:     db,
		broker: broker,
	}
}

// publish emits a feed event for a committed mutation. A publish failure is
// logged but doesn't fail the mutation; the row is already durable and the
// next Refresh/Load will pick it up.
func (s *SQL) publish(kind string, collection string, topic string, documentID int64, payload any) {
	event, err := feed.NewEvent(kind, collection, documentID, payload)
	if err != nil {
		s.sugar.Errorf("Encoding %s event for document ID [%d]: %v", kind, documentID, err)
		return
	}

	if err := s.broker.Publish(topic, event); err != nil {
		s.sugar.Errorf("Publishing %s event for document ID [%d]: %v", kind, documentID, err)
	}
}

// ---- users ----

func (s *SQL) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	userID, err := snowflake.Generate()
	if err != nil {
		return models.User{}, err
	}
	user.ID = userID

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, name, avatar_initials, status, last_login, password) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Name, user.AvatarInitials, user.Status, user.LastLogin, user.Password)
	if err != nil {
		return models.User{}, wrapErr(err)
	}

	return user, nil
}

func (s *SQL) UserByID(ctx context.Context, userID int64) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, name, avatar_initials, status, last_login, password FROM users WHERE id = ?", userID))
}

func (s *SQL) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, name, avatar_initials, status, last_login, password FROM users WHERE username = ?", username))
}

func (s *SQL) scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	var lastLogin sql.NullTime

	err := row.Scan(&user.ID, &user.Username, &user.Name, &user.AvatarInitials, &user.Status, &lastLogin, &user.Password)
	if err != nil {
		return models.User{}, wrapErr(err)
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return user, nil
}

func (s *SQL) Users(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, name, avatar_initials, status, last_login, password FROM users ORDER BY username")
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		var lastLogin sql.NullTime

		err := rows.Scan(&user.ID, &user.Username, &user.Name, &user.AvatarInitials, &user.Status, &lastLogin, &user.Password)
		if err != nil {
			return nil, wrapErr(err)
		}
		if lastLogin.Valid {
			user.LastLogin = &lastLogin.Time
		}
		users = append(users, user)
	}
	return users, wrapErr(rows.Err())
}

// SetUserStatus records presence changes; on login it also stamps lastLogin.
func (s *SQL) SetUserStatus(ctx context.Context, userID int64, status string, loggedIn bool) error {
	var err error
	if loggedIn {
		_, err = s.db.ExecContext(ctx, "UPDATE users SET status = ?, last_login = ? WHERE id = ?", status, time.Now().UTC(), userID)
	} else {
		_, err = s.db.ExecContext(ctx, "UPDATE users SET status = ? WHERE id = ?", status, userID)
	}
	return wrapErr(err)
}

func (s *SQL) UpdateUserProfile(ctx context.Context, userID int64, name string, avatarInitials string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET name = ?, avatar_initials = ? WHERE id = ?", name, avatarInitials, userID)
	return wrapErr(err)
}

// ---- channels ----

func (s *SQL) CreateChannel(ctx context.Context, channel models.Channel) (models.Channel, error) {
	channelID, err := snowflake.Generate()
	if err != nil {
		return models.Channel{}, err
	}
	channel.ID = channelID
	channel.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO channels (id, name, display_name, description, icon, type, creator_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		channel.ID, channel.Name, channel.DisplayName, channel.Description, channel.Icon, channel.Type, channel.CreatorID, channel.CreatedAt)
	if err != nil {
		return models.Channel{}, wrapErr(err)
	}

	// the creator is a member from the first moment
	members := append([]int64{channel.CreatorID}, channel.Members...)
	channel.Members = nil
	for _, userID := range members {
		if err := s.insertMember(ctx, channel.ID, userID); err != nil {
			return models.Channel{}, err
		}
		channel.Members = append(channel.Members, userID)
	}

	s.publish(feed.KindCreate, feed.CollectionChannels, feed.ChannelTopic(), channel.ID, channel)
	return channel, nil
}

func (s *SQL) insertMember(ctx context.Context, channelID int64, userID int64) error {
	// INSERT OR IGNORE is sqlite; mysql spells it INSERT IGNORE, so probe first
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id = ? AND user_id = ?)", channelID, userID).Scan(&exists)
	if err != nil {
		return wrapErr(err)
	}
	if exists {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO channel_members (channel_id, user_id, since) VALUES (?, ?, ?)", channelID, userID, time.Now().UTC())
	return wrapErr(err)
}

func (s *SQL) Channel(ctx context.Context, channelID int64) (models.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, display_name, description, icon, type, creator_id, created_at FROM channels WHERE id = ?", channelID)

	var channel models.Channel
	err := row.Scan(&channel.ID, &channel.Name, &channel.DisplayName, &channel.Description,
		&channel.Icon, &channel.Type, &channel.CreatorID, &channel.CreatedAt)
	if err != nil {
		return models.Channel{}, wrapErr(err)
	}

	channel.Members, err = s.members(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

// ChannelByName resolves the unique lowercase name, used for DM pair lookup.
func (s *SQL) ChannelByName(ctx context.Context, name string) (models.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, display_name, description, icon, type, creator_id, created_at FROM channels WHERE name = ?", name)

	var channel models.Channel
	err := row.Scan(&channel.ID, &channel.Name, &channel.DisplayName, &channel.Description,
		&channel.Icon, &channel.Type, &channel.CreatorID, &channel.CreatedAt)
	if err != nil {
		return models.Channel{}, wrapErr(err)
	}

	channel.Members, err = s.members(ctx, channel.ID)
	if err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

func (s *SQL) members(ctx context.Context, channelID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM channel_members WHERE channel_id = ?", channelID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	members := []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, wrapErr(err)
		}
		members = append(members, userID)
	}
	return members, wrapErr(rows.Err())
}

// Channels returns every channel with its member id set attached; the
// relationship rows never leave this adapter in raw form.
func (s *SQL) Channels(ctx context.Context) ([]models.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, display_name, description, icon, type, creator_id, created_at FROM channels")
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	channels := []models.Channel{}
	byID := make(map[int64]int)

	for rows.Next() {
		var channel models.Channel
		err := rows.Scan(&channel.ID, &channel.Name, &channel.DisplayName, &channel.Description,
			&channel.Icon, &channel.Type, &channel.CreatorID, &channel.CreatedAt)
		if err != nil {
			return nil, wrapErr(err)
		}
		channel.Members = []int64{}
		byID[channel.ID] = len(channels)
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}

	memberRows, err := s.db.QueryContext(ctx, "SELECT channel_id, user_id FROM channel_members")
	if err != nil {
		return nil, wrapErr(err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var channelID, userID int64
		if err := memberRows.Scan(&channelID, &userID); err != nil {
			return nil, wrapErr(err)
		}
		if i, exists := byID[channelID]; exists {
			channels[i].Members = append(channels[i].Members, userID)
		}
	}
	return channels, wrapErr(memberRows.Err())
}

func (s *SQL) AddMember(ctx context.Context, channelID int64, userID int64) (models.Channel, error) {
	if err := s.insertMember(ctx, channelID, userID); err != nil {
		return models.Channel{}, err
	}

	channel, err := s.Channel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}

	s.publish(feed.KindUpdate, feed.CollectionChannels, feed.ChannelTopic(), channel.ID, channel)
	return channel, nil
}

func (s *SQL) RemoveMember(ctx context.Context, channelID int64, userID int64) (models.Channel, error) {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM channel_members WHERE channel_id = ? AND user_id = ?", channelID, userID)
	if err != nil {
		return models.Channel{}, wrapErr(err)
	}

	channel, err := s.Channel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}

	s.publish(feed.KindUpdate, feed.CollectionChannels, feed.ChannelTopic(), channel.ID, channel)
	return channel, nil
}

func (s *SQL) UpdateChannel(ctx context.Context, channelID int64, displayName string, description string) (models.Channel, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE channels SET display_name = ?, description = ? WHERE id = ?", displayName, description, channelID)
	if err != nil {
		return models.Channel{}, wrapErr(err)
	}

	channel, err := s.Channel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}

	s.publish(feed.KindUpdate, feed.CollectionChannels, feed.ChannelTopic(), channel.ID, channel)
	return channel, nil
}

// DeleteChannel removes the channel; membership rows and messages cascade.
// The delete event carries the document as it was so subscribers can clean up
// their id-keyed caches.
func (s *SQL) DeleteChannel(ctx context.Context, channelID int64) error {
	channel, err := s.Channel(ctx, channelID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM channels WHERE id = ?", channelID)
	if err != nil {
		return wrapErr(err)
	}

	s.publish(feed.KindDelete, feed.CollectionChannels, feed.ChannelTopic(), channel.ID, channel)
	return nil
}

// ---- messages ----

func (s *SQL) CreateMessage(ctx context.Context, channelID int64, author models.User, text string) (models.Message, error) {
	messageID, err := snowflake.Generate()
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:         messageID,
		ChannelID:  channelID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Text:       text,
		// the id embeds its creation time, so timestamp and id can never
		// disagree about ordering
		Timestamp: snowflake.ExtractTime(messageID).UTC(),
		Edited:    false,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO messages (id, channel_id, author_id, author_name, text, timestamp, edited, edited_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		msg.ID, msg.ChannelID, msg.AuthorID, msg.AuthorName, msg.Text, msg.Timestamp, msg.Edited, nil)
	if err != nil {
		return models.Message{}, wrapErr(err)
	}

	s.publish(feed.KindCreate, feed.CollectionMessages, feed.MessageTopic(), msg.ID, msg)
	return msg, nil
}

// RecentMessages returns up to limit messages of a channel, newest first.
// Timeline caches reverse this into ascending order on their side.
func (s *SQL) RecentMessages(ctx context.Context, channelID int64, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_id, author_id, author_name, text, timestamp, edited, edited_at
		FROM messages
		WHERE channel_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, channelID, limit)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var editedAt sql.NullTime

		err := rows.Scan(&msg.ID, &msg.ChannelID, &msg.AuthorID, &msg.AuthorName, &msg.Text, &msg.Timestamp, &msg.Edited, &editedAt)
		if err != nil {
			return nil, wrapErr(err)
		}
		if editedAt.Valid {
			msg.EditedAt = &editedAt.Time
		}
		messages = append(messages, msg)
	}
	return messages, wrapErr(rows.Err())
}

func (s *SQL) message(ctx context.Context, messageID int64) (models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, channel_id, author_id, author_name, text, timestamp, edited, edited_at FROM messages WHERE id = ?", messageID)

	var msg models.Message
	var editedAt sql.NullTime

	err := row.Scan(&msg.ID, &msg.ChannelID, &msg.AuthorID, &msg.AuthorName, &msg.Text, &msg.Timestamp, &msg.Edited, &editedAt)
	if err != nil {
		return models.Message{}, wrapErr(err)
	}
	if editedAt.Valid {
		msg.EditedAt = &editedAt.Time
	}
	return msg, nil
}

// EditMessage changes the text of the author's own message. A mismatched
// author falls out as ErrNotFound, same as a missing id.
func (s *SQL) EditMessage(ctx context.Context, messageID int64, authorID int64, text string) (models.Message, error) {
	editedAt := time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		"UPDATE messages SET text = ?, edited = ?, edited_at = ? WHERE id = ? AND author_id = ?",
		text, true, editedAt, messageID, authorID)
	if err != nil {
		return models.Message{}, wrapErr(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.Message{}, wrapErr(err)
	}
	if affected == 0 {
		return models.Message{}, ErrNotFound
	}

	msg, err := s.message(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}

	s.publish(feed.KindUpdate, feed.CollectionMessages, feed.MessageTopic(), msg.ID, msg)
	return msg, nil
}

func (s *SQL) DeleteMessage(ctx context.Context, messageID int64, authorID int64) error {
	msg, err := s.message(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.AuthorID != authorID {
		return ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ? AND author_id = ?", messageID, authorID)
	if err != nil {
		return wrapErr(err)
	}

	s.publish(feed.KindDelete, feed.CollectionMessages, feed.MessageTopic(), msg.ID, msg)
	return nil
}
