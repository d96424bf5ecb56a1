/*
Package rabbitmq provides a RabbitMQ publisher for integration events.
Events are published to a topic exchange with the topic as routing key. It includes
an auto-reconnect publisher and supports optional header propagation via a bus.HeaderPropagator.
*/
package rabbitmq
