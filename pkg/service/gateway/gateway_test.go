package gateway

import (
	"context"
	"testing"

	clientmock "github.com/linecard/trainstack/pkg/mock/client"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("RouteKeys follows pagination and sorts", func(t *testing.T) {
		mgw := &clientmock.MockApiGatewayV2Client{}
		mgw.On("GetRoutes", ctx, &apigatewayv2.GetRoutesInput{ApiId: aws.String("abc")}).Return(&apigatewayv2.GetRoutesOutput{
			Items:     []types.Route{{RouteKey: aws.String("$disconnect")}, {RouteKey: aws.String("$default")}},
			NextToken: aws.String("next"),
		}, nil)
		mgw.On("GetRoutes", ctx, &apigatewayv2.GetRoutesInput{ApiId: aws.String("abc"), NextToken: aws.String("next")}).Return(&apigatewayv2.GetRoutesOutput{
			Items: []types.Route{{RouteKey: aws.String("$connect")}},
		}, nil)

		keys, err := FromClients(mgw).RouteKeys(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []string{"$connect", "$default", "$disconnect"}, keys)
		mgw.AssertExpectations(t)
	})

	t.Run("InspectApi", func(t *testing.T) {
		mgw := &clientmock.MockApiGatewayV2Client{}
		mgw.On("GetApi", ctx, &apigatewayv2.GetApiInput{ApiId: aws.String("abc")}).Return(&apigatewayv2.GetApiOutput{
			ProtocolType: types.ProtocolTypeWebsocket,
		}, nil)

		api, err := FromClients(mgw).InspectApi(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, types.ProtocolTypeWebsocket, api.ProtocolType)
		mgw.AssertExpectations(t)
	})

	t.Run("Stage", func(t *testing.T) {
		mgw := &clientmock.MockApiGatewayV2Client{}
		mgw.On("GetStage", ctx, &apigatewayv2.GetStageInput{ApiId: aws.String("abc"), StageName: aws.String("prod")}).Return(&apigatewayv2.GetStageOutput{
			StageName:  aws.String("prod"),
			AutoDeploy: aws.Bool(true),
		}, nil)

		stage, err := FromClients(mgw).Stage(ctx, "abc", "prod")
		require.NoError(t, err)
		assert.True(t, aws.ToBool(stage.AutoDeploy))
		mgw.AssertExpectations(t)
	})
}
