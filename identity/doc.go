// Package identity creates and loads the server's OPC UA application
// instance identity.
//
// On first use NewServerKeyStore generates an RSA key pair and a self-signed
// certificate carrying DefaultSubject, the application URI
// "urn:eclipse:milo:opcua:server:<uuid>" and Subject Alternative Names for
// every hostname the HostnameSource returns. The identity is stored under
// alias "server" with entry password "password" and reused on every later
// run.
//
//	ks, err := identity.NewServerKeyStore(ctx, interfaces.Settings{
//		StorageLocation: "/var/lib/opcua/server.oks",
//		StorePassword:   storePassword,
//	}, identity.StaticHostnames("10.0.0.5", "opc.example.com"))
//	if err != nil && !errors.Is(err, interfaces.ErrPersistence) {
//		return err
//	}
//	keyPair, err := ks.DefaultKeyPair()
package identity
