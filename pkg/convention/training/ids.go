package training

// Logical ids of the declared resources.
const (
	TrainingDataBucket = "TrainingDataBucket"
	WeightsBucket      = "WeightsBucket"
	ModelRegistry      = "ModelRegistry"
	SageMakerRole      = "SageMakerRole"
	LambdaRole         = "LambdaExecutionRole"
	UploadHandler      = "UploadHandler"
	DownloadHandler    = "DownloadHandler"
	TrainingHandler    = "TrainingJobAPIHandler"
	AudioHandler       = "AudioHandler"
	ModelAPI           = "ModelAPI"
	AudioStreamApi     = "AudioStreamApi"
)

// Exported output names.
const (
	OutputTrainingBucket = "TrainingBucketName"
	OutputWeightsBucket  = "WeightsBucketName"
	OutputRegistryUri    = "ModelRegistryUri"
	OutputApiEndpoint    = "APIEndpoint"
	OutputAudioEndpoint  = "AudioWSEndpoint"
)

const (
	RepositoryName = "test-models"
	RestApiName    = "Test Model API"
	StreamApiName  = "AudioStreamApi"
	StageName      = "prod"
	HandlerRuntime = "python3.9"
	HandlerCode    = "lambda"
	HandlerMemory  = 256
)

var (
	CorsMethods     = []string{"GET", "PUT", "POST"}
	PreflightHeader = []string{"Content-Type", "X-Amz-Date", "Authorization", "X-Api-Key"}
	AllMethods      = []string{"OPTIONS", "GET", "PUT", "POST", "DELETE", "PATCH", "HEAD"}
)
