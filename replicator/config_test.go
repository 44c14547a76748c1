package replicator

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/utilitywarehouse/git-replicate/repository"
)

func TestConfig_validateDefaults(t *testing.T) {
	type args struct {
		dc DefaultConfig
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{"empty", args{dc: DefaultConfig{}}, false},
		{"valid", args{dc: DefaultConfig{
			Root: "/root", Branch: "master", Interval: time.Second, ReplicationTimeout: 2 * time.Second, GitGC: "always",
			OriginAuth: repository.Auth{SSHKeyPath: "/path/to/key", SSHKnownHostsPath: "/host"},
		}}, false},
		{"invalid_root", args{dc: DefaultConfig{
			Root: "root", Interval: time.Second, ReplicationTimeout: 2 * time.Second, GitGC: "always",
		}}, true},
		{"invalid_interval", args{dc: DefaultConfig{
			Root: "/root", Interval: time.Millisecond, ReplicationTimeout: 2 * time.Second, GitGC: "always",
		}}, true},
		{"invalid_timeout", args{dc: DefaultConfig{
			Root: "/root", Interval: time.Second, ReplicationTimeout: time.Millisecond, GitGC: "always",
		}}, true},
		{"valid_gc", args{dc: DefaultConfig{
			Root: "/root", Interval: time.Second, ReplicationTimeout: 2 * time.Second,
		}}, false},
		{"invalid_gc", args{dc: DefaultConfig{
			Root: "/root", Interval: time.Second, ReplicationTimeout: 2 * time.Second, GitGC: "blah",
		}}, true},
		{"valid_gh_app", args{dc: DefaultConfig{
			Root: "/root", Interval: time.Second, ReplicationTimeout: 2 * time.Second, GitGC: "always",
			OriginAuth: repository.Auth{GithubAppID: "12", GithubAppInstallationID: "34", GithubAppPrivateKeyPath: "/path/to/key"},
		}}, false},
		{"invalid_gh_app", args{dc: DefaultConfig{
			Root: "/root", Interval: time.Second, ReplicationTimeout: 2 * time.Second, GitGC: "always",
			OriginAuth: repository.Auth{GithubAppID: "12", GithubAppPrivateKeyPath: "/path/to/key"},
		}}, true},
		{"invalid_gh_app_mirror", args{dc: DefaultConfig{
			Root: "/root", Interval: time.Second, ReplicationTimeout: 2 * time.Second, GitGC: "always",
			MirrorAuth: repository.Auth{GithubAppID: "12", GithubAppPrivateKeyPath: "/path/to/key"},
		}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Config{Defaults: tt.args.dc}
			if err := config.validateDefaults(); (err != nil) != tt.wantErr {
				t.Errorf("ValidateDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_applyDefaults(t *testing.T) {
	defIdentity := repository.Identity{Name: "replicator", Email: "bot@example.com"}
	defOriginAuth := repository.Auth{SSHKeyPath: "/path/to/key", SSHKnownHostsPath: "/host"}
	defMirrorAuth := repository.Auth{Username: "bot", Password: "token"}

	tests := []struct {
		name   string
		config Config
		want   Config
	}{
		{
			"1",
			Config{},
			Config{},
		},
		{"all_def",
			Config{
				Defaults: DefaultConfig{
					Root: "/root", Branch: "master", Interval: time.Second, ReplicationTimeout: 2 * time.Second, GitGC: "always",
					Identity: defIdentity, OriginAuth: defOriginAuth, MirrorAuth: defMirrorAuth,
				},
				Repositories: []repository.Config{
					{Origin: "user@host.xz:path/to/repo1.git", Mirror: "user@gitee.com:path/to/repo1.git"},
					{Origin: "user@host.xz:path/to/repo2.git", Mirror: "user@gitee.com:path/to/repo2.git"},
					{
						Origin:             "user@host.xz:path/to/repo3.git",
						Mirror:             "user@gitee.com:path/to/repo3.git",
						Branch:             "release",
						Root:               "/another-root",
						Interval:           2 * time.Second,
						ReplicationTimeout: 4 * time.Second,
						GitGC:              "off",
						Identity:           repository.Identity{Name: "other", Email: "other@example.com"},
						OriginAuth:         repository.Auth{SSHKeyPath: "/path/to/key"},
						MirrorAuth:         repository.Auth{SSHKeyPath: "/path/to/key"},
					},
				},
			},
			Config{
				Defaults: DefaultConfig{
					Root: "/root", Branch: "master", Interval: time.Second, ReplicationTimeout: 2 * time.Second, GitGC: "always",
					Identity: defIdentity, OriginAuth: defOriginAuth, MirrorAuth: defMirrorAuth,
				},
				Repositories: []repository.Config{
					{
						Origin:             "user@host.xz:path/to/repo1.git",
						Mirror:             "user@gitee.com:path/to/repo1.git",
						Branch:             "master",
						Root:               "/root",
						Interval:           time.Second,
						ReplicationTimeout: 2 * time.Second,
						GitGC:              "always",
						Identity:           defIdentity,
						OriginAuth:         defOriginAuth,
						MirrorAuth:         defMirrorAuth,
					},
					{
						Origin:             "user@host.xz:path/to/repo2.git",
						Mirror:             "user@gitee.com:path/to/repo2.git",
						Branch:             "master",
						Root:               "/root",
						Interval:           time.Second,
						ReplicationTimeout: 2 * time.Second,
						GitGC:              "always",
						Identity:           defIdentity,
						OriginAuth:         defOriginAuth,
						MirrorAuth:         defMirrorAuth,
					},
					{
						Origin:             "user@host.xz:path/to/repo3.git",
						Mirror:             "user@gitee.com:path/to/repo3.git",
						Branch:             "release",
						Root:               "/another-root",
						Interval:           2 * time.Second,
						ReplicationTimeout: 4 * time.Second,
						GitGC:              "off",
						Identity:           repository.Identity{Name: "other", Email: "other@example.com"},
						OriginAuth:         repository.Auth{SSHKeyPath: "/path/to/key"},
						MirrorAuth:         repository.Auth{SSHKeyPath: "/path/to/key"},
					},
				}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			tt.config.applyDefaults()

			if diff := cmp.Diff(tt.config, tt.want); diff != "" {
				t.Errorf("ApplyDefaults() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfig_validateOrigins(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			"valid",
			Config{
				Defaults: DefaultConfig{Root: "/root"},
				Repositories: []repository.Config{
					{Origin: "https://github.com/org/repo1.git"},
					{Origin: "https://github.com/org/repo2.git"},
					{Origin: "https://github.com/other-org/repo3.git", Root: "/another-root"},
				},
			},
			false,
		}, {
			"same-origin",
			Config{
				Defaults: DefaultConfig{Root: "/root"},
				Repositories: []repository.Config{
					{Origin: "https://github.com/org/repo1.git"},
					{Origin: "https://github.com/org/repo1.git"},
				},
			},
			true,
		}, {
			"same-origin-diff-format",
			Config{
				Defaults: DefaultConfig{Root: "/root"},
				Repositories: []repository.Config{
					{Origin: "https://github.com/org/repo1.git"},
					{Origin: "https://github.com/org/repo1"},
				},
			},
			true,
		}, {
			"same-repo-name-same-root",
			Config{
				Defaults: DefaultConfig{Root: "/root"},
				Repositories: []repository.Config{
					{Origin: "https://github.com/org/repo1.git"},
					{Origin: "https://github.com/other-org/repo1.git"},
				},
			},
			true,
		}, {
			"same-repo-name-diff-root",
			Config{
				Defaults: DefaultConfig{Root: "/root"},
				Repositories: []repository.Config{
					{Origin: "https://github.com/org/repo1.git"},
					{Origin: "https://github.com/other-org/repo1.git", Root: "/another-root"},
				},
			},
			false,
		}, {
			"invalid-origin-url",
			Config{
				Defaults: DefaultConfig{Root: "/root"},
				Repositories: []repository.Config{
					{Origin: "blah/blah"},
				},
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			tt.config.applyDefaults()

			if err := tt.config.validateOrigins(); (err != nil) != tt.wantErr {
				t.Errorf("validateOrigins() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
