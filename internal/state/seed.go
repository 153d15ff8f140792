package state

import "time"

// Seed populates empty collections with placeholder records. Invoked once
// at startup by the composition root; collections already holding data are
// left alone, so calling it twice is safe.
func Seed(s *Store) {
	now := time.Now().UTC()

	if _, ok := s.DashboardMetrics(); !ok {
		s.SetDashboardMetrics(MockMetrics())
	}
	if len(s.ContentGenerations()) == 0 {
		for _, gen := range MockGenerations(now) {
			// Seed records carry fixed ids; duplicates cannot occur on an
			// empty collection.
			_ = s.AddContentGeneration(gen)
		}
	}
	if len(s.Notifications()) == 0 {
		for _, n := range MockNotifications(now) {
			read := n.Read
			s.AddNotification(n)
			if read {
				s.MarkNotificationRead(n.ID)
			}
		}
	}
	if len(s.Channels()) == 0 {
		s.SetChannels(MockChannels())
	}
	if len(s.ScheduledContent()) == 0 {
		s.SetScheduledContent(MockScheduledContent(now))
	}
	if len(s.APIKeys()) == 0 {
		s.SetAPIKeys(MockAPIKeys(now))
	}
}

// MockMetrics returns a placeholder dashboard snapshot.
func MockMetrics() DashboardMetrics {
	return DashboardMetrics{
		TotalChannels:     12,
		ActiveGenerations: 5,
		PublishedToday:    23,
		TotalViews:        1247892,
		TotalSubscribers:  45672,
		Revenue:           3247.89,
		QueuedContent:     18,
		Errors:            2,
	}
}

// MockGenerations returns placeholder generation records in newest-first
// submission order.
func MockGenerations(now time.Time) []ContentGeneration {
	est := now.Add(15 * time.Minute)
	return []ContentGeneration{
		{
			ID:                  "gen-demo-1",
			Topic:               "How to Build a Successful YouTube Channel in 2024",
			Duration:            600,
			ContentType:         "educational",
			TargetAudience:      "content creators",
			Status:              StatusGenerating,
			Progress:            67,
			ChannelID:           "ch1",
			Platform:            PlatformYouTube,
			CreatedAt:           now,
			EstimatedCompletion: &est,
		},
		{
			ID:             "gen-demo-2",
			Topic:          "5 Instagram Reel Ideas That Go Viral",
			Duration:       30,
			ContentType:    "entertainment",
			TargetAudience: "social media managers",
			Status:         StatusQueued,
			Progress:       0,
			ChannelID:      "ch2",
			Platform:       PlatformInstagram,
			CreatedAt:      now.Add(-5 * time.Minute),
		},
		{
			ID:             "gen-demo-3",
			Topic:          "AI Tools for Content Creation - Complete Guide",
			Duration:       480,
			ContentType:    "tutorial",
			TargetAudience: "entrepreneurs",
			Status:         StatusCompleted,
			Progress:       100,
			ChannelID:      "ch1",
			Platform:       PlatformYouTube,
			CreatedAt:      now.Add(-30 * time.Minute),
			GeneratedContent: &GeneratedContent{
				VideoURL:    "/placeholder-video.mp4",
				Thumbnails:  []string{"/placeholder-thumb1.jpg", "/placeholder-thumb2.jpg"},
				Title:       "AI Tools for Content Creation - Complete Guide",
				Description: "Discover the best AI tools for creating engaging content...",
				Tags:        []string{"AI", "Content Creation", "Tools", "Tutorial"},
				Metadata: MediaMetadata{
					Duration:   480,
					Resolution: "1920x1080",
					FileSize:   2576980378, // ~2.4 GiB
				},
			},
		},
	}
}

// MockNotifications returns placeholder notifications, newest first.
func MockNotifications(now time.Time) []Notification {
	return []Notification{
		{
			ID:        "notif-demo-1",
			Type:      NotificationSuccess,
			Title:     "Content Generation Complete",
			Message:   `Your video "AI Tools for Content Creation" is ready for review`,
			Timestamp: now.Add(-5 * time.Minute),
			ActionURL: "/content-creation",
		},
		{
			ID:        "notif-demo-2",
			Type:      NotificationWarning,
			Title:     "API Usage Alert",
			Message:   "You've used 80% of your monthly API quota",
			Timestamp: now.Add(-30 * time.Minute),
			ActionURL: "/api-management",
		},
		{
			ID:        "notif-demo-3",
			Type:      NotificationInfo,
			Title:     "New Channel Connected",
			Message:   "Successfully connected @TechTips Instagram account",
			Timestamp: now.Add(-2 * time.Hour),
			Read:      true,
		},
	}
}

// MockChannels returns placeholder connected channels.
func MockChannels() []Channel {
	return []Channel{
		{
			ID: "ch1", Name: "TechTips Pro", Platform: PlatformYouTube,
			Subscribers: 125400, Videos: 342, Views: 2400000,
			Status: "active", Engagement: 8.2, Growth: 12.5,
		},
		{
			ID: "ch2", Name: "@creativestudio", Platform: PlatformInstagram,
			Subscribers: 89300, Videos: 156, Views: 1200000,
			Status: "active", Engagement: 15.7, Growth: 8.9,
		},
		{
			ID: "ch3", Name: "Business Insights", Platform: PlatformYouTube,
			Subscribers: 67800, Videos: 89, Views: 890000,
			Status: "paused", Engagement: 6.4, Growth: -2.1,
		},
		{
			ID: "ch4", Name: "@lifestyle_daily", Platform: PlatformInstagram,
			Subscribers: 234500, Videos: 423, Views: 3200000,
			Status: "active", Engagement: 12.3, Growth: 18.7,
		},
	}
}

// MockScheduledContent returns a placeholder publishing queue.
func MockScheduledContent(now time.Time) []ScheduledContent {
	return []ScheduledContent{
		{
			ID:          "sched-demo-1",
			ContentID:   "gen-demo-3",
			ChannelID:   "ch1",
			Platform:    PlatformYouTube,
			ScheduledAt: now.Add(4 * time.Hour),
			Status:      "scheduled",
			Visibility:  "public",
			Content: GeneratedContent{
				Title:       "AI Tools for Content Creation - Complete Guide",
				Description: "Discover the best AI tools for creating engaging content...",
				Thumbnails:  []string{"/placeholder-thumb1.jpg"},
				Tags:        []string{"AI", "Tools"},
				Metadata:    MediaMetadata{Duration: 480, Resolution: "1920x1080"},
			},
		},
		{
			ID:          "sched-demo-2",
			ContentID:   "gen-demo-5",
			ChannelID:   "ch2",
			Platform:    PlatformInstagram,
			ScheduledAt: now.Add(26 * time.Hour),
			Status:      "scheduled",
			Visibility:  "public",
			Content: GeneratedContent{
				Title:      "5 Productivity Hacks",
				Thumbnails: []string{"/placeholder-thumb3.jpg"},
				Tags:       []string{"productivity"},
				Metadata:   MediaMetadata{Duration: 45, Resolution: "1080x1920"},
			},
		},
	}
}

// MockAPIKeys returns placeholder managed credentials. Only previews of the
// key material exist anywhere in the system.
func MockAPIKeys(now time.Time) []APIKey {
	lastUsed := now.Add(-2 * time.Hour)
	return []APIKey{
		{
			ID: "key-demo-1", Name: "Primary Gemini Key", Service: "google-ai-studio",
			KeyPreview: "AIzaSyBx7B8mKpQwXyZ123...", Status: "active",
			UsageCount: 7500, UsageLimit: 10000,
			CreatedAt: now.AddDate(0, -3, 0), LastUsed: &lastUsed,
		},
		{
			ID: "key-demo-2", Name: "Backup Gemini Key", Service: "google-ai-studio",
			KeyPreview: "AIzaSyBx7B8mKpQwAbc456...", Status: "active",
			UsageCount: 1600, UsageLimit: 5000,
			CreatedAt: now.AddDate(0, -2, 0),
		},
		{
			ID: "key-demo-3", Name: "TTS Model Key", Service: "google-ai-studio",
			KeyPreview: "AIzaSyBx7B8mKpQwDef789...", Status: "inactive",
			UsageCount: 0, UsageLimit: 3000,
			CreatedAt: now.AddDate(0, -1, 0),
		},
	}
}
