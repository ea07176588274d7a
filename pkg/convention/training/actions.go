package training

var (
	uploadObjectActions = []string{
		"s3:PutObject",
		"s3:GetObject",
		"s3:ListBucket",
		"s3:GetObjectVersion",
		"s3:DeleteObject",
	}

	downloadObjectActions = []string{
		"s3:GetObject",
		"s3:ListBucket",
		"s3:GetObjectVersion",
	}

	audioObjectActions = []string{
		"s3:PutObject",
		"s3:GetObject",
		"s3:ListBucket",
	}

	registryTokenActions = []string{"ecr:GetAuthorizationToken"}

	registryReadActions = []string{
		"ecr:BatchCheckLayerAvailability",
		"ecr:GetDownloadUrlForLayer",
		"ecr:GetRepositoryPolicy",
		"ecr:DescribeRepositories",
		"ecr:ListImages",
		"ecr:DescribeImages",
		"ecr:BatchGetImage",
	}

	trainingJobActions = []string{
		"sagemaker:CreateTrainingJob",
		"sagemaker:DescribeTrainingJob",
		"sagemaker:StopTrainingJob",
	}

	passRoleActions = []string{"iam:PassRole"}

	manageConnectionActions = []string{"execute-api:ManageConnections"}

	// read/write on a bucket and its objects for the training identity
	bucketReadWriteActions = []string{
		"s3:GetObject*",
		"s3:GetBucket*",
		"s3:List*",
		"s3:DeleteObject*",
		"s3:PutObject",
		"s3:PutObjectLegalHold",
		"s3:PutObjectRetention",
		"s3:PutObjectTagging",
		"s3:PutObjectVersionTagging",
		"s3:Abort*",
	}

	registryPullPushActions = []string{
		"ecr:BatchCheckLayerAvailability",
		"ecr:GetDownloadUrlForLayer",
		"ecr:BatchGetImage",
		"ecr:CompleteLayerUpload",
		"ecr:UploadLayerPart",
		"ecr:InitiateLayerUpload",
		"ecr:PutImage",
	}

	trainingLogActions = []string{
		"logs:CreateLogGroup",
		"logs:CreateLogStream",
		"logs:PutLogEvents",
		"logs:DescribeLogStreams",
	}
)

// Managed policies. The full-access pair is only attached when broad training access is
// explicitly requested.
const (
	LambdaBasicExecutionPolicy = "service-role/AWSLambdaBasicExecutionRole"
	SageMakerFullAccessPolicy  = "AmazonSageMakerFullAccess"
	S3FullAccessPolicy         = "AmazonS3FullAccess"
)
