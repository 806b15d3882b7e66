package activity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/edvin/instance-deploy/internal/model"
)

const (
	httpsPort        = 443
	httpsPortString  = "443"
	redirectProtocol = "HTTPS"
)

// ConfigureLoadBalancer terminates TLS on the environment's balancer:
// it adds an HTTPS listener forwarding to the environment's target group,
// turns the plaintext listener into a permanent redirect to HTTPS and locks
// the balancer to the configured security group.
//
// The steps are not transactional. A failure after the HTTPS listener exists
// leaves it in place.
func (a *Deploy) ConfigureLoadBalancer(ctx context.Context, balancerArn string) (*model.LoadBalancerConfig, error) {
	logger := a.logger.With().Str("balancer", balancerArn).Logger()

	httpListener, err := a.findHTTPListener(ctx, balancerArn)
	if err != nil {
		return nil, err
	}
	targetGroup, err := a.findTargetGroup(ctx, balancerArn)
	if err != nil {
		return nil, err
	}

	created, err := a.lb.CreateListener(ctx, &elbv2.CreateListenerInput{
		LoadBalancerArn: aws.String(balancerArn),
		Port:            aws.Int32(httpsPort),
		Protocol:        elbtypes.ProtocolEnumHttps,
		SslPolicy:       aws.String(a.settings.SSLPolicy),
		Certificates: []elbtypes.Certificate{
			{CertificateArn: aws.String(a.settings.CertificateArn)},
		},
		DefaultActions: []elbtypes.Action{
			{Type: elbtypes.ActionTypeEnumForward, TargetGroupArn: aws.String(targetGroup)},
		},
	})
	if err != nil {
		return nil, remoteErr("create https listener", err)
	}
	cfg := &model.LoadBalancerConfig{
		BalancerArn:     balancerArn,
		TargetGroupArn:  targetGroup,
		HTTPListenerArn: httpListener,
	}
	if len(created.Listeners) > 0 {
		cfg.HTTPSListenerArn = aws.ToString(created.Listeners[0].ListenerArn)
	}

	_, err = a.lb.ModifyListener(ctx, &elbv2.ModifyListenerInput{
		ListenerArn: aws.String(httpListener),
		DefaultActions: []elbtypes.Action{{
			Type: elbtypes.ActionTypeEnumRedirect,
			RedirectConfig: &elbtypes.RedirectActionConfig{
				StatusCode: elbtypes.RedirectActionStatusCodeEnumHttp301,
				Protocol:   aws.String(redirectProtocol),
				Port:       aws.String(httpsPortString),
				Host:       aws.String("#{host}"),
				Path:       aws.String("/#{path}"),
				Query:      aws.String("#{query}"),
			},
		}},
	})
	if err != nil {
		return nil, remoteErr("redirect http listener", err)
	}

	_, err = a.lb.SetSecurityGroups(ctx, &elbv2.SetSecurityGroupsInput{
		LoadBalancerArn: aws.String(balancerArn),
		SecurityGroups:  []string{a.settings.BalancerSecurityGroupID},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("balancer left without restricted security group")
		return nil, remoteErr("set balancer security groups", err)
	}

	logger.Info().Str("target_group", targetGroup).Str("https_listener", cfg.HTTPSListenerArn).
		Msg("load balancer configured")
	return cfg, nil
}

func (a *Deploy) findHTTPListener(ctx context.Context, balancerArn string) (string, error) {
	out, err := a.lb.DescribeListeners(ctx, &elbv2.DescribeListenersInput{
		LoadBalancerArn: aws.String(balancerArn),
	})
	if err != nil {
		return "", remoteErr("describe listeners", err)
	}
	for _, l := range out.Listeners {
		if l.Protocol == elbtypes.ProtocolEnumHttp {
			return aws.ToString(l.ListenerArn), nil
		}
	}
	return "", model.NewError(model.KindRemoteAPI, fmt.Sprintf("balancer %s has no http listener", balancerArn))
}

func (a *Deploy) findTargetGroup(ctx context.Context, balancerArn string) (string, error) {
	out, err := a.lb.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		LoadBalancerArn: aws.String(balancerArn),
	})
	if err != nil {
		return "", remoteErr("describe target groups", err)
	}
	if len(out.TargetGroups) == 0 || aws.ToString(out.TargetGroups[0].TargetGroupArn) == "" {
		return "", model.NewError(model.KindRemoteAPI, fmt.Sprintf("balancer %s has no target group", balancerArn))
	}
	return aws.ToString(out.TargetGroups[0].TargetGroupArn), nil
}
