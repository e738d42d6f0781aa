package config

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Environment = "development"
Level = "debug"
Outputs = ["stdout"]

[Database]
Database = "postgres"
User = "swap_user"
Password = "swap_password"
Name = "swap_db"
Host = "zkevm-swap-db"
Port = "5432"
MaxConns = 20

[Redis]
IsClusterMode = false
Addrs = []
DB = 0
KeyPrefix = "swap:"

[MessagePush]
Enabled = false
UseFakeProducer = false
Brokers = []
Topic = "zkevm-swap-events"
PushKey = "swap"

[CoinKafkaConsumer]
Enabled = false
Brokers = []
Topics = ["coin-price"]
ConsumerGroupID = "zkevm-swap-service"
InitialOffset = -1
Username = ""
Password = ""
RootCAPath = ""
CacheRefreshInterval = "1m"

[Metrics]
Enabled = false
Port = "9091"
Endpoint = "/metrics"
Env = "local"

[Custody]
Address = "0xa0Ee7A142d267C1f36714E4a8F75612F20a79720"
KeystoreDir = "./test/keystore"
KeystorePassword = "testonly"

[Finality]
PollInterval = "2s"
SecretSharingDelay = "0s"

[Security]
Admins = ["0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"]
PauseGuardian = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
Resolvers = []
ReentrancyTimeout = "1m"

[Resolver]
MinimumStake = "1000000000000000000"
InitialReputation = 100
ReputationReward = 1
ReputationPenalty = 10

[SafetyDeposit]
Rate = "0.1"

[Coordinator]
OrderDuration = "2h"
TimelockMargin = "30m"
MerkleSegments = 4
MonitorInterval = "5s"
    [Coordinator.Auction]
    StartDelay = "1m"
    Duration = "10m"
    StartMultiplier = "1.1"
    DecreaseRatePerMinute = "0.02"
    MinimumReturnRate = "0.9"

[SwapServer]
Host = "0.0.0.0"
HTTPPort = "8080"
ReadTimeout = "10s"
WriteTimeout = "15m"
AllowedOrigins = []
DefaultPageLimit = 25
MaxPageLimit = 100
CacheSize = 100000
`
