package config

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewPipelineForTest(concurrency, attempts, threshold, chunkSize int) *Pipeline {
	return &Pipeline{
		concurrency: concurrency,
		attempts:    attempts,
		threshold:   threshold,
		chunkSize:   chunkSize,
	}
}

func NewNotifyForTest(webhookURL, botToken, channel string) *Notify {
	return &Notify{webhookURL: webhookURL, botToken: botToken, channel: channel}
}

func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID}
}

func NewRegistryForTest(path string) *Registry {
	return &Registry{path: path}
}
