// Package config provides configuration parsing for appcore projects.
//
// The configuration lives at the project root in appcore.yaml (or
// appcore.yml, or appcore.json). Loading applies defaults for every
// omitted field; Validate reports out-of-range values as coded errors.
//
// # Configuration File Structure
//
//	name: shop
//	devMode: false
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	  shutdownTimeout: 10s
//	templates:
//	  dir: templates
//	  s3:
//	    bucket: shop-templates
//	    prefix: prod/
//	    region: eu-west-1
//	static:
//	  dir: public
//	  prefix: /static/
//	  manifest: manifest.json
//	state:
//	  backend: redis
//	  ttl: 30m
//	  redis:
//	    addr: localhost:6379
//	live:
//	  enabled: true
//	  path: /_live
//	metrics:
//	  enabled: true
//	  path: /metrics
//	log:
//	  level: info
//	  format: text
//
// String secrets (state.secret, state.redis.password) have environment
// variables expanded, so "${APPCORE_STATE_SECRET}" reads the secret
// from the environment.
package config
