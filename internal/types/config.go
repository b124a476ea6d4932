package types

type RunMode string

const (
	// ModeLocal runs the API server, the reconciliation consumer and the sweeper together
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server
	ModeAPI RunMode = "api"
	// ModeConsumer runs only the asynchronous reconciliation consumer
	ModeConsumer RunMode = "consumer"
	// ModeSweeper runs only the periodic stale tenant sweep
	ModeSweeper RunMode = "sweeper"
	// ModeAWSLambdaAPI is the mode for running the API server in AWS Lambda
	ModeAWSLambdaAPI RunMode = "aws_lambda_api"
	// ModeAWSLambdaSweeper runs one sweep per scheduled Lambda invocation
	ModeAWSLambdaSweeper RunMode = "aws_lambda_sweeper"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
