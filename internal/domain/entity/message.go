package entity

import "github.com/google/uuid"

// RosterProcessingMessage is the inbound message from the roster.processing queue.
type RosterProcessingMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	ClubID    string    `json:"club_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
}

// RosterStatusMessage is the outbound message published to the roster.status queue.
type RosterStatusMessage struct {
	JobID          uuid.UUID `json:"job_id"`
	ClubID         string    `json:"club_id"`
	ChannelID      string    `json:"channel_id"`
	UserID         string    `json:"user_id"`
	Status         JobStatus `json:"status"`
	VideoKey       string    `json:"video_key"`
	ResultKey      string    `json:"result_key,omitempty"`
	FrameCount     int       `json:"frame_count,omitempty"`
	ChainCount     int       `json:"chain_count,omitempty"`
	Members        []Member  `json:"members,omitempty"`
	Codeblock      string    `json:"codeblock,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Attempt        int       `json:"attempt"`
	MaxAttempts    int       `json:"max_attempts"`
}

// RosterProgressMessage is published periodically while a video is analysed,
// so the messaging front-end can keep editing its status message.
type RosterProgressMessage struct {
	JobID          uuid.UUID        `json:"job_id"`
	ChannelID      string           `json:"channel_id"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
	Progress       ProgressSnapshot `json:"progress"`
}
