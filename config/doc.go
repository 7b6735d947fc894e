// Package config provides types for project configuration and loading config
// files from disk.
//
// The files are loaded using the Loader, which merges every .hcl file under
// the project root into a single body. The merged body is decoded against the
// Root config by resource/hcldecoder.
//
// A typical config file may look something like this:
//
//  project "webapp" {}
//
//  resource "main" {
//    kind       = "network"
//    cidr_block = "10.0.0.0/16"
//  }
//
//  resource "a" {
//    kind       = "subnet"
//    network    = network.main.id
//    cidr_block = "10.0.1.0/24"
//  }
//
// Except for the kind, the body of a resource block is specific to the
// resource kind. Scaling behavior is declared with scaling_policy and
// metric_alarm blocks:
//
//  scaling_policy "out" {
//    fleet      = "web"
//    adjustment = 1
//    cooldown   = "2m"
//  }
//
//  metric_alarm "high_cpu" {
//    metric             = "cpu"
//    comparison         = "gt"
//    threshold          = 80
//    evaluation_periods = 2
//    policy             = "out"
//  }
package config
