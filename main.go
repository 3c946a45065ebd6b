package main

import (
	"fmt"
	"log"
	"os"

	"PPGateway/global"
	"PPGateway/logger"
	"PPGateway/service/gateway"
	"PPGateway/service/natsx"
	"PPGateway/service/storage"
	redisutil "PPGateway/service/storage/redis"
	ids "PPGateway/tools/ids"
	security "PPGateway/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1) Configuration
	conf := global.Default()
	if path := os.Getenv("GATEWAY_CONFIG"); path != "" {
		loaded, err := global.FromFile(path)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		conf = loaded
	}
	if conf.ControlAuthToken == "" {
		conf.ControlAuthToken = os.Getenv("GATEWAY_CONTROL_TOKEN")
	}
	if conf.PrivateKey == "" {
		conf.PrivateKey = os.Getenv("GATEWAY_PRIVATE_KEY")
	}
	if conf.ControlAuthToken == "" || conf.PrivateKey == "" {
		log.Fatal("control auth token and private key must be configured")
	}
	ids.SetNodeID(conf.NodeID)

	// 2) Authenticator + gateway server
	cryptor := security.NewCryptor(conf.PrivateKey)
	auth := gateway.NewSimpleAuthenticator(conf.ControlAuthToken, cryptor)
	srv := gateway.NewServer(conf, auth)
	defer srv.Close()

	registerActions(srv)

	// 3) Optional presence mirror
	if conf.Redis.Enable {
		if err := redisutil.InitRedis(redisutil.Config{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
			PoolSize: conf.Redis.PoolSize,
		}); err != nil {
			log.Fatalf("init redis: %v", err)
		}
		srv.Registry().SetPresence(storage.NewPresence(2 * conf.IdleTimeout()))
	}

	// 4) Optional NATS control ingress
	if conf.Nats.Enable {
		nc, err := natsx.NewClient(natsx.Config{URL: conf.Nats.URL, Subject: conf.Nats.Subject})
		if err != nil {
			log.Fatalf("connect nats: %v", err)
		}
		defer nc.Close()
		consumer := natsx.NewControlConsumer(nc, srv.Registry(), auth)
		if err := consumer.Start(); err != nil {
			log.Fatalf("start control consumer: %v", err)
		}
		defer consumer.Stop()
	}

	// 5) HTTP + WebSocket
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", srv.HandleWS)
	gateway.RegisterControlRoutes(r, srv)

	logger.Infof("[main] gateway listening on %s (tls=%v)", conf.Addr(), conf.Websocket.UseSSL)
	if conf.Websocket.UseSSL {
		if err := r.RunTLS(conf.Addr(), conf.Websocket.SSLCert, conf.Websocket.SSLKey); err != nil {
			log.Fatalf("server failed: %v", err)
		}
		return
	}
	if err := r.Run(conf.Addr()); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// registerActions installs the example action set. Real deployments replace
// these with their own table at startup.
func registerActions(srv *gateway.Server) {
	must := func(err error) {
		if err != nil {
			log.Fatalf("register action: %v", err)
		}
	}

	must(srv.RegisterAction("echo", func(_ gateway.WebsocketUser, payload map[string]any) (any, error) {
		msg, _ := payload["message"].(string)
		return map[string]any{"message": "Echo: " + msg}, nil
	}))

	must(srv.RegisterAction("sum", func(_ gateway.WebsocketUser, payload map[string]any) (any, error) {
		numbers, _ := payload["numbers"].([]any)
		var sum float64
		for _, n := range numbers {
			f, ok := n.(float64)
			if !ok {
				return nil, fmt.Errorf("numbers must be numeric")
			}
			sum += f
		}
		return map[string]any{"result": sum}, nil
	}))

	// fans a message out to everyone else as a side effect; the automatic
	// success reply still goes back to the sender
	must(srv.RegisterAction("broadcast", func(user gateway.WebsocketUser, payload map[string]any) (any, error) {
		msg, _ := payload["message"].(string)
		srv.Registry().BroadcastText([]byte(msg), []int64{user.GetID()})
		return nil, nil
	}))
}
