package aws

import "github.com/converge/converge/provider"

// Registry returns a provider registry with an adapter for every builtin
// resource kind.
func (p *Provider) Registry() *provider.Registry {
	r := &provider.Registry{}
	r.Register("network", &networkAdapter{p})
	r.Register("subnet", &subnetAdapter{p})
	r.Register("security_group", &securityGroupAdapter{p})
	r.Register("storage_bucket", &storageBucketAdapter{p})
	r.Register("launch_template", &launchTemplateAdapter{p})
	r.Register("fleet", &fleetAdapter{p})
	r.Register("load_balancer", &loadBalancerAdapter{p})
	r.Register("target_group", &targetGroupAdapter{p})
	r.Register("listener", &listenerAdapter{p})
	return r
}
