package state

import "time"

// Theme is the UI theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Platform identifies the publishing target of a generation.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return p == PlatformYouTube || p == PlatformInstagram
}

// LoadingKey names one of the independent page loading flags.
type LoadingKey string

const (
	LoadingDashboard   LoadingKey = "dashboard"
	LoadingGenerations LoadingKey = "generations"
	LoadingChannels    LoadingKey = "channels"
	LoadingAnalytics   LoadingKey = "analytics"
)

// Valid reports whether k is a known loading flag.
func (k LoadingKey) Valid() bool {
	switch k {
	case LoadingDashboard, LoadingGenerations, LoadingChannels, LoadingAnalytics:
		return true
	}
	return false
}

// User is the session identity placeholder. Account linkage and tokens are
// out of scope; only the fields the preference snapshot carries are modeled.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ContentGeneration is a tracked unit of AI video-creation work.
type ContentGeneration struct {
	ID                  string            `json:"id"`
	Topic               string            `json:"topic"`
	Duration            int               `json:"duration"` // seconds
	ContentType         string            `json:"contentType"`
	TargetAudience      string            `json:"targetAudience"`
	Status              Status            `json:"status"`
	Progress            int               `json:"progress"` // 0..100
	ChannelID           string            `json:"channelId"`
	Platform            Platform          `json:"platform"`
	CreatedAt           time.Time         `json:"createdAt"`
	EstimatedCompletion *time.Time        `json:"estimatedCompletion,omitempty"`
	GeneratedContent    *GeneratedContent `json:"generatedContent,omitempty"`
	ErrorMessage        string            `json:"errorMessage,omitempty"`
}

// GeneratedContent is the payload attached to a completed generation.
type GeneratedContent struct {
	VideoURL    string        `json:"videoUrl,omitempty"`
	Thumbnails  []string      `json:"thumbnails"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Tags        []string      `json:"tags"`
	Transcript  string        `json:"transcript,omitempty"`
	Metadata    MediaMetadata `json:"metadata"`
}

// MediaMetadata describes the generated media file.
type MediaMetadata struct {
	Duration   int    `json:"duration"` // seconds
	Resolution string `json:"resolution"`
	FileSize   int64  `json:"fileSize"` // bytes
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is a user-facing message describing an event or error.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
	ActionURL string           `json:"actionUrl,omitempty"`
}

// DashboardMetrics is a read-only snapshot aggregate, replaced wholesale.
type DashboardMetrics struct {
	TotalChannels     int     `json:"totalChannels"`
	ActiveGenerations int     `json:"activeGenerations"`
	PublishedToday    int     `json:"publishedToday"`
	TotalViews        int64   `json:"totalViews"`
	TotalSubscribers  int64   `json:"totalSubscribers"`
	Revenue           float64 `json:"revenue"`
	QueuedContent     int     `json:"queuedContent"`
	Errors            int     `json:"errors"`
}

// ScheduledContent is an entry in the publishing queue.
type ScheduledContent struct {
	ID          string           `json:"id"`
	ContentID   string           `json:"contentId"`
	ChannelID   string           `json:"channelId"`
	Platform    Platform         `json:"platform"`
	ScheduledAt time.Time        `json:"scheduledAt"`
	Status      string           `json:"status"` // "scheduled", "published", "failed"
	Content     GeneratedContent `json:"content"`
	Visibility  string           `json:"visibility"` // "public", "unlisted", "private"
}

// Channel is a connected social-media channel.
type Channel struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Platform    Platform `json:"platform"`
	Avatar      string   `json:"avatar,omitempty"`
	Subscribers int64    `json:"subscribers"`
	Videos      int      `json:"videos"`
	Views       int64    `json:"views"`
	Status      string   `json:"status"` // "active", "paused", "error"
	Engagement  float64  `json:"engagement"`
	Growth      float64  `json:"growth"`
}

// APIKey is a managed external-service credential. Only a preview of the
// key material is kept in state.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Service    string     `json:"service"`
	KeyPreview string     `json:"keyPreview"`
	Status     string     `json:"status"` // "active", "inactive", "expired"
	UsageCount int        `json:"usageCount"`
	UsageLimit int        `json:"usageLimit"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsed   *time.Time `json:"lastUsed,omitempty"`
}
