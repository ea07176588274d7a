package template

const (
	MetadataOrder   = "trainstack:order"
	MetadataOutputs = "trainstack:outputs"
	MetadataOwner   = "trainstack:owner"
	MetadataAsset   = "trainstack:asset"
)

const (
	ParamCodeBucket = "HandlerCodeBucket"
	ParamCodeKey    = "HandlerCodeKey"
)

const (
	TypeBucket            = "AWS::S3::Bucket"
	TypeRepository        = "AWS::ECR::Repository"
	TypeRole              = "AWS::IAM::Role"
	TypePolicy            = "AWS::IAM::Policy"
	TypeFunction          = "AWS::Lambda::Function"
	TypePermission        = "AWS::Lambda::Permission"
	TypeRestApi           = "AWS::ApiGateway::RestApi"
	TypeRestResource      = "AWS::ApiGateway::Resource"
	TypeRestMethod        = "AWS::ApiGateway::Method"
	TypeRestDeployment    = "AWS::ApiGateway::Deployment"
	TypeRestStage         = "AWS::ApiGateway::Stage"
	TypeStreamApi         = "AWS::ApiGatewayV2::Api"
	TypeStreamIntegration = "AWS::ApiGatewayV2::Integration"
	TypeStreamRoute       = "AWS::ApiGatewayV2::Route"
	TypeStreamStage       = "AWS::ApiGatewayV2::Stage"
)

const (
	sseAlgorithm  = "AES256"
	policyVersion = "2012-10-17"
)
